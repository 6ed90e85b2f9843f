package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"journal-backend/config"
	"journal-backend/internal/model"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	mu       sync.Mutex
	sent     []string
	SendFunc func(sub *webpush.Subscription) (*http.Response, error)
}

func (m *mockSender) Send(ctx context.Context, payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	m.mu.Lock()
	m.sent = append(m.sent, sub.Endpoint)
	m.mu.Unlock()
	return m.SendFunc(sub)
}

func (m *mockSender) endpoints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func respWithStatus(code int) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

// fakeStore is an in-memory Store that records deletions.
type fakeStore struct {
	mu       sync.Mutex
	users    []model.User
	usersErr error
	subs     map[int64][]model.PushSubscription
	subsErr  map[int64]error
	deleted  []string
}

func (f *fakeStore) DB() *gorm.DB { return nil }

func (f *fakeStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return nil
}

func (f *fakeStore) SubscriptionsForUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	if err := f.subsErr[userID]; err != nil {
		return nil, err
	}
	return f.subs[userID], nil
}

func (f *fakeStore) DeleteSubscription(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) DeleteSubscriptionByEndpoint(ctx context.Context, userID int64, endpoint string) error {
	return nil
}

func (f *fakeStore) OptedInUsers(ctx context.Context) ([]model.User, error) {
	return f.users, f.usersErr
}

func newTestDispatcher(s *fakeStore, sender Sender) *Dispatcher {
	cfg := &config.DispatchConfig{
		BucketMinutes: 5,
		SendTimeout:   time.Second,
	}
	d := NewDispatcher(s, &webpush.Options{}, cfg, 2, "")
	d.sender = sender
	return d
}

// mustInstant builds a UTC instant that corresponds to the given local
// wall-clock time in the given zone.
func mustInstant(t *testing.T, zone string, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(zone)
	require.NoError(t, err)
	return time.Date(2026, 3, 2, hour, minute, 17, 0, loc).UTC()
}

func TestUserDue_BucketSemantics(t *testing.T) {
	user := model.User{ID: 1, Timezone: "America/New_York", ReminderTime: "08:00"}

	testCases := []struct {
		name   string
		hour   int
		minute int
		due    bool
	}{
		{"exact reminder minute", 8, 0, true},
		{"inside the same bucket", 8, 2, true},
		{"last minute of the bucket", 8, 4, true},
		{"next bucket", 8, 7, false},
		{"previous bucket", 7, 58, false},
		{"same minute wrong hour", 9, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			now := mustInstant(t, "America/New_York", tc.hour, tc.minute)
			assert.Equal(t, tc.due, userDue(user, now, 5))
		})
	}
}

func TestUserDue_TimezoneConversion(t *testing.T) {
	// 13:00 UTC is 08:00 in New York during winter.
	user := model.User{ID: 1, Timezone: "America/New_York", ReminderTime: "08:00"}
	now := time.Date(2026, 1, 15, 13, 2, 0, 0, time.UTC)
	assert.True(t, userDue(user, now, 5))

	utcUser := model.User{ID: 2, Timezone: "UTC", ReminderTime: "08:00"}
	assert.False(t, userDue(utcUser, now, 5))
}

func TestUserDue_InvalidProfileFields(t *testing.T) {
	now := time.Now().UTC()
	assert.False(t, userDue(model.User{Timezone: "Not/AZone", ReminderTime: "08:00"}, now, 5))
	assert.False(t, userDue(model.User{Timezone: "UTC", ReminderTime: "eight"}, now, 5))
}

func TestDispatcher_Run_SendsAndPrunes(t *testing.T) {
	now := mustInstant(t, "UTC", 8, 2)
	s := &fakeStore{
		users: []model.User{
			{ID: 1, Timezone: "UTC", ReminderTime: "08:00"},
		},
		subs: map[int64][]model.PushSubscription{
			1: {
				{ID: "sub-ok", UserID: 1, Endpoint: "https://push.example.com/ok", P256DH: "k", Auth: "a"},
				{ID: "sub-gone", UserID: 1, Endpoint: "https://push.example.com/gone", P256DH: "k", Auth: "a"},
			},
		},
	}
	sender := &mockSender{
		SendFunc: func(sub *webpush.Subscription) (*http.Response, error) {
			if sub.Endpoint == "https://push.example.com/gone" {
				return respWithStatus(http.StatusGone), nil
			}
			return respWithStatus(http.StatusCreated), nil
		},
	}

	summary, err := newTestDispatcher(s, sender).Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, Summary{Attempted: 2, Sent: 1, Failed: 0, Pruned: 1}, summary)
	assert.Equal(t, []string{"sub-gone"}, s.deleted, "only the gone endpoint's row is pruned")
}

func TestDispatcher_Run_TransientFailureLeavesRow(t *testing.T) {
	now := mustInstant(t, "UTC", 8, 0)
	s := &fakeStore{
		users: []model.User{{ID: 1, Timezone: "UTC", ReminderTime: "08:00"}},
		subs: map[int64][]model.PushSubscription{
			1: {
				{ID: "sub-timeout", UserID: 1, Endpoint: "https://push.example.com/t", P256DH: "k", Auth: "a"},
				{ID: "sub-5xx", UserID: 1, Endpoint: "https://push.example.com/5xx", P256DH: "k", Auth: "a"},
			},
		},
	}
	sender := &mockSender{
		SendFunc: func(sub *webpush.Subscription) (*http.Response, error) {
			if sub.Endpoint == "https://push.example.com/t" {
				return nil, errors.New("context deadline exceeded")
			}
			return respWithStatus(http.StatusBadGateway), nil
		},
	}

	summary, err := newTestDispatcher(s, sender).Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, Summary{Attempted: 2, Sent: 0, Failed: 2, Pruned: 0}, summary)
	assert.Empty(t, s.deleted, "transient failures must not mutate the store")
}

func TestDispatcher_Run_FailureIsolation(t *testing.T) {
	now := mustInstant(t, "UTC", 8, 0)
	s := &fakeStore{
		users: []model.User{
			{ID: 1, Timezone: "UTC", ReminderTime: "08:00"},
			{ID: 2, Timezone: "UTC", ReminderTime: "08:00"},
		},
		subs: map[int64][]model.PushSubscription{
			1: {{ID: "sub-bad", UserID: 1, Endpoint: "https://push.example.com/bad", P256DH: "k", Auth: "a"}},
			2: {{ID: "sub-good", UserID: 2, Endpoint: "https://push.example.com/good", P256DH: "k", Auth: "a"}},
		},
	}
	sender := &mockSender{
		SendFunc: func(sub *webpush.Subscription) (*http.Response, error) {
			if sub.Endpoint == "https://push.example.com/bad" {
				return nil, fmt.Errorf("connection refused")
			}
			return respWithStatus(http.StatusCreated), nil
		},
	}

	summary, err := newTestDispatcher(s, sender).Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, Summary{Attempted: 2, Sent: 1, Failed: 1, Pruned: 0}, summary)
	assert.Contains(t, sender.endpoints(), "https://push.example.com/good",
		"one subscriber's failure must not abort the rest of the batch")
}

func TestDispatcher_Run_SubscriptionLoadFailureSkipsUser(t *testing.T) {
	now := mustInstant(t, "UTC", 8, 0)
	s := &fakeStore{
		users: []model.User{
			{ID: 1, Timezone: "UTC", ReminderTime: "08:00"},
			{ID: 2, Timezone: "UTC", ReminderTime: "08:00"},
		},
		subs: map[int64][]model.PushSubscription{
			2: {{ID: "sub-2", UserID: 2, Endpoint: "https://push.example.com/2", P256DH: "k", Auth: "a"}},
		},
		subsErr: map[int64]error{1: errors.New("db went away")},
	}
	sender := &mockSender{
		SendFunc: func(sub *webpush.Subscription) (*http.Response, error) {
			return respWithStatus(http.StatusCreated), nil
		},
	}

	summary, err := newTestDispatcher(s, sender).Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, Summary{Attempted: 1, Sent: 1}, summary)
}

func TestDispatcher_Run_NotDueUserGetsNothing(t *testing.T) {
	now := mustInstant(t, "UTC", 12, 30)
	s := &fakeStore{
		users: []model.User{{ID: 1, Timezone: "UTC", ReminderTime: "08:00"}},
		subs: map[int64][]model.PushSubscription{
			1: {{ID: "sub-1", UserID: 1, Endpoint: "https://push.example.com/1", P256DH: "k", Auth: "a"}},
		},
	}
	sender := &mockSender{
		SendFunc: func(sub *webpush.Subscription) (*http.Response, error) {
			return respWithStatus(http.StatusCreated), nil
		},
	}

	summary, err := newTestDispatcher(s, sender).Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	assert.Empty(t, sender.endpoints(), "no send expected for a user outside their reminder bucket")
}

func TestDispatcher_Run_ProfileReadFailureIsFatal(t *testing.T) {
	s := &fakeStore{usersErr: errors.New("profiles unavailable")}
	sender := &mockSender{
		SendFunc: func(sub *webpush.Subscription) (*http.Response, error) {
			return respWithStatus(http.StatusCreated), nil
		},
	}

	_, err := newTestDispatcher(s, sender).Run(context.Background(), time.Now().UTC())
	assert.Error(t, err)
	assert.Empty(t, sender.endpoints())
}
