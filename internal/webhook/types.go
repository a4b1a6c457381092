package webhook

import (
	"time"

	"github.com/google/uuid"
)

// Endpoint is the single receiver configured through WEBHOOK_URL.
type Endpoint struct {
	URL    string
	Secret string
}

type Job struct {
	ID        uuid.UUID
	EventType string
	Payload   []byte
	Attempts  int
}

type EventPayload struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
