package agent

import (
	"context"
	"log"
	"sync"
)

// FailureReason classifies why a renewal cycle stopped. All reasons are
// terminal for the current cycle only; the periodic re-check is the retry
// mechanism. None of them surface as a blocking UI error, because reminders
// are a convenience layered over a fully functional manual-entry flow.
type FailureReason string

const (
	ReasonPushUnsupported    FailureReason = "push_unsupported"
	ReasonPermissionDenied   FailureReason = "permission_denied"
	ReasonRegistrationFailed FailureReason = "service_worker_registration_failed"
	ReasonSubscribeRejected  FailureReason = "subscribe_rejected"
	ReasonPersistFailed      FailureReason = "server_persist_failed"
)

// ProfileReader exposes the one profile field the agent needs: whether the
// user asked for push reminders at all.
type ProfileReader interface {
	PushOptIn(ctx context.Context) (bool, error)
}

// Saver persists a subscription server-side for the current user.
type Saver interface {
	Save(ctx context.Context, sub *Subscription, userAgent string) error
}

// Result reports the outcome of one renewal cycle.
type Result struct {
	// Subscription is the current valid subscription, when one exists.
	Subscription *Subscription
	// Reason is set when the cycle failed; empty otherwise.
	Reason FailureReason
	// Skipped means no work was attempted: the user is not opted in,
	// permission was already denied this session, or another attempt is
	// in flight.
	Skipped bool
}

// Agent keeps exactly one valid push subscription registered for the current
// browser profile and keeps the server copy in sync.
type Agent struct {
	platform       Platform
	profile        ProfileReader
	saver          Saver
	vapidPublicKey string
	userAgent      string

	// mu serializes renewal attempts: a trigger arriving while one is in
	// flight is dropped and the next tick retries.
	mu sync.Mutex

	denied    bool
	lastSaved Subscription
}

// New creates an agent. vapidPublicKey is the server's application key; an
// empty key makes subscription creation fail fast instead of attempting a
// malformed platform request.
func New(platform Platform, profile ProfileReader, saver Saver, vapidPublicKey, userAgent string) *Agent {
	return &Agent{
		platform:       platform,
		profile:        profile,
		saver:          saver,
		vapidPublicKey: vapidPublicKey,
		userAgent:      userAgent,
	}
}

// EnsureActive is the orchestration entry point, called on the periodic tick
// and on visibility/focus regain. It checks the stored opt-in preference
// before touching any platform state, so a user who never asked for
// reminders is never prompted and never gets a service worker installed.
func (a *Agent) EnsureActive(ctx context.Context) Result {
	if !a.mu.TryLock() {
		return Result{Skipped: true}
	}
	defer a.mu.Unlock()

	optIn, err := a.profile.PushOptIn(ctx)
	if err != nil {
		log.Printf("agent: could not read push preference: %v", err)
		return Result{Skipped: true}
	}
	if !optIn {
		return Result{Skipped: true}
	}
	if a.denied {
		// Denial is terminal for this session; do not re-prompt.
		return Result{Skipped: true}
	}

	res := a.subscribeOrRenew(ctx)
	if res.Reason != "" {
		log.Printf("agent: renewal failed: %s", res.Reason)
		return res
	}

	if *res.Subscription != a.lastSaved {
		if err := a.saver.Save(ctx, res.Subscription, a.userAgent); err != nil {
			// The browser-level subscription stays; the next periodic
			// check retries the save.
			log.Printf("agent: could not persist subscription: %v", err)
			res.Reason = ReasonPersistFailed
			return res
		}
		a.lastSaved = *res.Subscription
	}
	return res
}

// subscribeOrRenew walks the renewal state machine: permission, worker
// registration and readiness, then validate-or-recreate the subscription.
func (a *Agent) subscribeOrRenew(ctx context.Context) Result {
	if !a.platform.PushSupported() {
		return Result{Reason: ReasonPushUnsupported}
	}

	switch a.platform.Permission() {
	case PermissionDenied:
		a.denied = true
		return Result{Reason: ReasonPermissionDenied}
	case PermissionDefault:
		perm, err := a.platform.RequestPermission(ctx)
		if err != nil {
			log.Printf("agent: permission request failed: %v", err)
			return Result{Reason: ReasonPermissionDenied}
		}
		if perm != PermissionGranted {
			a.denied = true
			return Result{Reason: ReasonPermissionDenied}
		}
	}

	if err := a.platform.EnsureRegistered(ctx); err != nil {
		log.Printf("agent: service worker registration failed: %v", err)
		return Result{Reason: ReasonRegistrationFailed}
	}
	if err := a.platform.Ready(ctx); err != nil {
		log.Printf("agent: service worker never became ready: %v", err)
		return Result{Reason: ReasonRegistrationFailed}
	}

	sub, err := a.platform.Subscription(ctx)
	if err != nil {
		log.Printf("agent: could not read existing subscription: %v", err)
		sub = nil
	}
	if sub != nil {
		if sub.Valid() {
			return Result{Subscription: sub}
		}
		// Corrupt subscription: clear it and fall through to creation.
		log.Printf("agent: existing subscription is missing endpoint or keys; recreating")
		if err := a.platform.Unsubscribe(ctx); err != nil {
			log.Printf("agent: unsubscribe of corrupt subscription failed: %v", err)
		}
	}

	if a.vapidPublicKey == "" {
		log.Printf("agent: VAPID public key is not configured; cannot subscribe")
		return Result{Reason: ReasonSubscribeRejected}
	}
	sub, err = a.platform.Subscribe(ctx, a.vapidPublicKey)
	if err != nil {
		log.Printf("agent: subscribe rejected by platform: %v", err)
		return Result{Reason: ReasonSubscribeRejected}
	}
	return Result{Subscription: sub}
}
