package agent

import "context"

// Permission mirrors the browser's notification permission state.
type Permission int

const (
	// PermissionDefault means the user has never been prompted.
	PermissionDefault Permission = iota
	PermissionGranted
	PermissionDenied
)

// Subscription is the serialized form of a browser push subscription: the
// endpoint plus the encryption material needed to address it.
type Subscription struct {
	Endpoint string
	P256DH   string
	Auth     string
}

// Valid reports whether the subscription is structurally complete. A
// subscription missing its endpoint or keys cannot be addressed and is
// treated as corrupt.
func (s *Subscription) Valid() bool {
	return s != nil && s.Endpoint != "" && s.P256DH != "" && s.Auth != ""
}

// Platform abstracts the browser's ambient push capabilities (permission
// state, service worker registration, the push manager) so the renewal state
// machine can be driven against a fake in tests.
type Platform interface {
	// PushSupported reports whether the platform has push support at all.
	PushSupported() bool

	// Permission returns the current notification permission without
	// prompting.
	Permission() Permission

	// RequestPermission prompts the user and blocks until they respond.
	RequestPermission(ctx context.Context) (Permission, error)

	// EnsureRegistered idempotently registers the service worker at its
	// fixed scope and triggers an update check. Safe to call repeatedly.
	EnsureRegistered(ctx context.Context) error

	// Ready blocks until the registered worker is active.
	Ready(ctx context.Context) error

	// Subscription returns the existing push subscription, or nil if none.
	// A missing registration is reported as no subscription, not an error.
	Subscription(ctx context.Context) (*Subscription, error)

	// Subscribe creates a new push subscription using the given application
	// server key. The platform may reject this, e.g. when permission was
	// revoked between steps.
	Subscribe(ctx context.Context, applicationServerKey string) (*Subscription, error)

	// Unsubscribe discards the current subscription, if any.
	Unsubscribe(ctx context.Context) error
}
