package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RunNotifications is the cron endpoint: the external scheduler POSTs here
// with the shared secret, and one dispatch pass runs. A bad secret performs
// zero work; individual send failures are reported only in the aggregate
// summary and never fail the invocation.
func (h *Handler) RunNotifications(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if h.cronSecret == "" || !ok ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	summary, err := h.dispatch.Run(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
