package sync

import (
	"encoding/json"
	"time"
)

// Operation is one queued offline action replayed from a gate device's
// outbox. The op id is minted on the device and, together with the
// device id, keys the idempotency ledger.
type Operation struct {
	OpID     string          `json:"op_id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	QueuedAt time.Time       `json:"queued_at"`
}

const (
	OpTypeRedemption = "redemption"
	OpTypeSale       = "sale"
	OpTypeShiftOpen  = "shift_open"
	OpTypeShiftClose = "shift_close"
)

const (
	OpStatusSuccess       = "success"
	OpStatusAlreadySynced = "already_synced"
	OpStatusFailed        = "failed"
)

// LedgerEntry marks one device operation as applied. Its presence means
// the op's effects are committed and must never be applied again.
type LedgerEntry struct {
	DeviceID  string
	OpID      string
	OpType    string
	AppliedAt time.Time
}
