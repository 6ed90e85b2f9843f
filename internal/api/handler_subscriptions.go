package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"journal-backend/internal/model"
	"journal-backend/internal/mw"
)

type saveSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
	UA       string `json:"ua"`
}

// SaveSubscription upserts a push subscription for the authenticated user,
// keyed by (user, endpoint). A renewal from the same device rotates the keys
// in place.
func (h *Handler) SaveSubscription(c *gin.Context) {
	userID, ok := mw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req saveSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := model.PushSubscription{
		UserID:    userID,
		Endpoint:  req.Endpoint,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
		UserAgent: req.UA,
	}
	if err := h.store.UpsertSubscription(c.Request.Context(), &sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type subscriptionView struct {
	Endpoint  string    `json:"endpoint"`
	UserAgent string    `json:"ua,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListSubscriptions returns the authenticated user's registered devices.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	userID, ok := mw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	subs, err := h.store.SubscriptionsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]subscriptionView, len(subs))
	for i, s := range subs {
		views[i] = subscriptionView{
			Endpoint:  s.Endpoint,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": views})
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the authenticated user's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	userID, ok := mw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DeleteSubscriptionByEndpoint(c.Request.Context(), userID, req.Endpoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
