package outbox

import (
	"encoding/json"
	"time"
)

// Event is one durable queued operation awaiting sync. It is written
// in the same breath as the local decision it describes; the network
// only ever sees it afterwards.
type Event struct {
	OpID       string          `json:"op_id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Status     string          `json:"status"`
	RetryCount int64           `json:"retry_count"`
	LastError  *string         `json:"last_error,omitempty"`
	QueuedAt   time.Time       `json:"queued_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

const (
	StatusQueued  = "queued"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)
