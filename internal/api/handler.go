package api

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"journal-backend/internal/notification"
	"journal-backend/internal/store"
)

// DispatchRunner is the slice of the dispatcher the cron endpoint needs.
type DispatchRunner interface {
	Run(ctx context.Context, now time.Time) (notification.Summary, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	webpush    *webpush.Options
	dispatch   DispatchRunner
	cronSecret string
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, webpushOptions *webpush.Options, dispatch DispatchRunner, cronSecret string) *Handler {
	return &Handler{
		store:      s,
		webpush:    webpushOptions,
		dispatch:   dispatch,
		cronSecret: cronSecret,
	}
}
