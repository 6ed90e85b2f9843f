package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"journal-backend/config"
	"journal-backend/internal/mw"
	"journal-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, webpushOptions *webpush.Options, dispatch DispatchRunner, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, webpushOptions, dispatch, cfg.Dispatch.CronSecret)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	auth := mw.Auth(cfg.Server.JWTSecret)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)

		subs := api.Group("/subscriptions")
		subs.Use(auth)
		{
			subs.POST("", handler.SaveSubscription)
			subs.GET("", handler.ListSubscriptions)
			subs.DELETE("", handler.DeleteSubscription)
		}

		api.POST("/cron/notifications", handler.RunNotifications)
	}

	return r
}
