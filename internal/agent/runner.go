package agent

import (
	"context"
	"time"
)

// Runner drives the agent with one cancellable periodic task plus
// edge-triggered wake-ups (visibility change, window focus). All triggers
// funnel through EnsureActive, whose in-flight guard keeps logical attempts
// serialized.
type Runner struct {
	agent    *Agent
	interval time.Duration
	wake     chan struct{}
}

// NewRunner creates a runner that re-checks the subscription every interval.
func NewRunner(a *Agent, interval time.Duration) *Runner {
	return &Runner{
		agent:    a,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Wake requests an immediate re-check, e.g. when the page regains focus.
// Wake-ups coalesce: at most one is pending at a time.
func (r *Runner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run checks once immediately, then loops until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.agent.EnsureActive(ctx)

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			r.agent.EnsureActive(ctx)
			timer.Reset(r.interval)
		case <-r.wake:
			r.agent.EnsureActive(ctx)
		}
	}
}
