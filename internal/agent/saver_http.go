package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPSaver persists subscriptions through the backend's subscription
// endpoint, authenticating as the current user with a bearer token.
type HTTPSaver struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewHTTPSaver creates a saver posting to baseURL (the site origin).
func NewHTTPSaver(baseURL, token string) *HTTPSaver {
	return &HTTPSaver{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		token:   token,
	}
}

type saveRequest struct {
	Endpoint string `json:"endpoint"`
	P256DH   string `json:"p256dh"`
	Auth     string `json:"auth"`
	UA       string `json:"ua"`
}

// Save upserts the subscription server-side keyed by (user, endpoint).
func (s *HTTPSaver) Save(ctx context.Context, sub *Subscription, userAgent string) error {
	body, err := json.Marshal(saveRequest{
		Endpoint: sub.Endpoint,
		P256DH:   sub.P256DH,
		Auth:     sub.Auth,
		UA:       userAgent,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/subscriptions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("subscription save returned %d", resp.StatusCode)
	}
	return nil
}
