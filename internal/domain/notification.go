package domain

import "time"

// Notification is a user-facing alert delivered over the live connection.
// Read tracking here is purely local; syncing it to the backend is the
// caller's business.
type Notification struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Link       string         `json:"link,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Read       bool           `json:"read"`
	ReceivedAt time.Time      `json:"received_at"`
}
