package serverapi

import (
	"encoding/json"
	"time"
)

// Wire types of the server's device-facing API. They are declared here
// rather than imported so the agent binary only couples to the wire
// contract, not to the server's internals.

type Operation struct {
	OpID     string          `json:"op_id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	QueuedAt time.Time       `json:"queued_at"`
}

type RedemptionVerdict struct {
	TicketID   string `json:"ticket_id,omitempty"`
	Result     string `json:"result"`
	Reason     string `json:"reason,omitempty"`
	Remaining  *int64 `json:"remaining,omitempty"`
	Downgraded bool   `json:"downgraded,omitempty"`
}

type OperationResult struct {
	OpID       string             `json:"op_id"`
	Status     string             `json:"status"`
	Reason     string             `json:"reason,omitempty"`
	Redemption *RedemptionVerdict `json:"redemption,omitempty"`
}

const (
	OpStatusSuccess       = "success"
	OpStatusAlreadySynced = "already_synced"
	OpStatusFailed        = "failed"
)

type SyncBatchResponse struct {
	DeviceID string            `json:"device_id"`
	Results  []OperationResult `json:"results"`
}

type TicketSnapshot struct {
	ID             string    `json:"id"`
	ShortCode      string    `json:"short_code"`
	Token          string    `json:"token"`
	Signature      string    `json:"signature"`
	KeyVersion     string    `json:"key_version"`
	Type           string    `json:"type"`
	QuotaOrMinutes int64     `json:"quota_or_minutes"`
	ValidFrom      time.Time `json:"valid_from"`
	ValidTo        time.Time `json:"valid_to"`
	LotID          string    `json:"lot_id"`
	Used           int64     `json:"used"`
	Status         string    `json:"status"`
	BoundDeviceIDs []string  `json:"bound_device_ids,omitempty"`
}

type GateConfig struct {
	OfflineWindowMinutes int64 `json:"offline_window_minutes"`
	MaxQueuedOps         int64 `json:"max_queued_ops"`
	CacheTTLMinutes      int64 `json:"cache_ttl_minutes"`
	ReplayWindowSeconds  int64 `json:"replay_window_seconds"`
}

type BootstrapWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type BootstrapResponse struct {
	DeviceID string           `json:"device_id"`
	Window   BootstrapWindow  `json:"window"`
	Config   GateConfig       `json:"config"`
	Tickets  []TicketSnapshot `json:"tickets"`
}
