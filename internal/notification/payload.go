package notification

import "encoding/json"

const (
	// DefaultTitle is used when a push payload carries no title of its own.
	DefaultTitle = "Daily Journal"

	// DefaultClickPath is where a notification click lands when the payload
	// names no URL.
	DefaultClickPath = "/journal"

	// Tag de-duplicates reminder notifications: a newer push with the same
	// tag replaces a pending unopened one instead of stacking.
	Tag = "journal-reminder"
)

// Payload is the message contract shared with the service worker.
type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Data  PayloadData `json:"data"`
}

// PayloadData carries the click target for the notification.
type PayloadData struct {
	URL string `json:"url"`
}

// Encode serializes the payload for the push service.
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// DecodePayload parses a push event's data the way the service worker does:
// best-effort JSON, falling back to treating the raw bytes as a plain-text
// body with the default title. It never fails; a reminder that renders with
// defaults beats one that renders not at all.
func DecodePayload(raw []byte) Payload {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{Title: DefaultTitle, Body: string(raw)}
	}
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	return p
}

// ClickAction describes how the service worker routes a notification click.
type ClickAction struct {
	Target  string
	OpenNew bool
}

// ResolveClick picks the window a notification click should land in: an
// already-open client window if there is one, otherwise a new window at the
// payload's URL.
func ResolveClick(p Payload, openWindows int) ClickAction {
	target := p.Data.URL
	if target == "" {
		target = DefaultClickPath
	}
	return ClickAction{Target: target, OpenNew: openWindows == 0}
}
