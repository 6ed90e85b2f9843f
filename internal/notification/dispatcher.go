package notification

import (
	"context"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"journal-backend/config"
	"journal-backend/internal/model"
	"journal-backend/internal/store"
)

// Summary is the aggregate result of one dispatcher invocation.
type Summary struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Pruned    int `json:"pruned"`
}

type sendOutcome int

const (
	outcomeSent sendOutcome = iota
	outcomeFailed
	outcomePruned
)

// Dispatcher selects users whose local time matches their reminder time and
// fans out one push attempt per subscription. Each invocation is stateless:
// everything it knows comes from the store, and transient failures are
// retried implicitly by the next scheduled invocation.
type Dispatcher struct {
	store       store.Store
	sender      Sender
	webpush     *webpush.Options
	bucket      int
	sendTimeout time.Duration
	poolSize    int
	clickURL    string
}

// NewDispatcher creates a dispatcher backed by the real web push transport.
func NewDispatcher(s store.Store, webpushOptions *webpush.Options, cfg *config.DispatchConfig, poolSize int, clickURL string) *Dispatcher {
	if clickURL == "" {
		clickURL = DefaultClickPath
	}
	return &Dispatcher{
		store:       s,
		sender:      &WebPushSender{},
		webpush:     webpushOptions,
		bucket:      cfg.BucketMinutes,
		sendTimeout: cfg.SendTimeout,
		poolSize:    poolSize,
		clickURL:    clickURL,
	}
}

// SetSender replaces the delivery transport. Tests use this to simulate
// push-service outcomes without network traffic.
func (d *Dispatcher) SetSender(s Sender) {
	d.sender = s
}

// Run performs one dispatch pass at the given instant. It returns an error
// only for dispatcher-level faults (the profile read failing); individual
// send failures are absorbed into the summary.
func (d *Dispatcher) Run(ctx context.Context, now time.Time) (Summary, error) {
	users, err := d.store.OptedInUsers(ctx)
	if err != nil {
		return Summary{}, err
	}

	payload, err := Payload{
		Title: DefaultTitle,
		Body:  "Time to answer today's questions.",
		Data:  PayloadData{URL: d.clickURL},
	}.Encode()
	if err != nil {
		return Summary{}, err
	}

	var jobs []model.PushSubscription
	for _, u := range users {
		if !userDue(u, now, d.bucket) {
			continue
		}
		subs, err := d.store.SubscriptionsForUser(ctx, u.ID)
		if err != nil {
			// One user's load failure must not abort the rest of the batch.
			log.Printf("Error fetching subscriptions for user %d: %v", u.ID, err)
			continue
		}
		jobs = append(jobs, subs...)
	}

	if len(jobs) == 0 {
		return Summary{}, nil
	}
	log.Printf("Dispatching %d reminder notifications", len(jobs))

	var sent, failed, pruned atomic.Int64
	jobCh := make(chan model.PushSubscription)
	var wg sync.WaitGroup
	for i := 0; i < d.poolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobCh {
				switch d.send(ctx, sub, payload) {
				case outcomeSent:
					sent.Add(1)
				case outcomePruned:
					pruned.Add(1)
				case outcomeFailed:
					failed.Add(1)
				}
			}
		}()
	}
	for _, sub := range jobs {
		jobCh <- sub
	}
	close(jobCh)
	wg.Wait()

	return Summary{
		Attempted: len(jobs),
		Sent:      int(sent.Load()),
		Failed:    int(failed.Load()),
		Pruned:    int(pruned.Load()),
	}, nil
}

// send makes exactly one delivery attempt for one subscription. A permanent
// failure (the push service reports the endpoint gone) prunes the row; any
// other failure leaves the row untouched for the next invocation.
func (d *Dispatcher) send(ctx context.Context, sub model.PushSubscription, payload []byte) sendOutcome {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := d.sender.Send(sendCtx, payload, wpSub, d.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return outcomeFailed
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := d.store.DeleteSubscription(ctx, sub.ID); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.ID, err)
		}
		return outcomePruned
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return outcomeSent
	default:
		log.Printf("Push service returned %d for %s", resp.StatusCode, sub.Endpoint)
		return outcomeFailed
	}
}

// userDue reports whether the user's configured reminder time falls in the
// same bucket as the current instant in the user's own timezone. Both sides
// are floored to the bucket width, so exactly one bucket per day matches and
// boundary instants cannot double-send.
func userDue(u model.User, now time.Time, bucketMinutes int) bool {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		log.Printf("User %d has invalid timezone %q: %v", u.ID, u.Timezone, err)
		return false
	}
	reminder, err := time.Parse("15:04", u.ReminderTime)
	if err != nil {
		log.Printf("User %d has invalid reminder time %q: %v", u.ID, u.ReminderTime, err)
		return false
	}

	local := now.In(loc)
	localMinutes := local.Hour()*60 + local.Minute()
	reminderMinutes := reminder.Hour()*60 + reminder.Minute()
	return localMinutes/bucketMinutes == reminderMinutes/bucketMinutes
}
