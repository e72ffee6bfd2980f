package redemption

import "time"

// DeviceRedemptionEvent is an offline redemption replayed from a gate
// device's outbox during sync.
type DeviceRedemptionEvent struct {
	Credential     string    `json:"credential"`
	ScannedAt      time.Time `json:"scanned_at"`
	AdvisoryResult string    `json:"advisory_result"`
	AdvisoryReason string    `json:"advisory_reason,omitempty"`
}

// DeviceRedemptionResult is the authoritative re-adjudication of one
// device redemption.
type DeviceRedemptionResult struct {
	TicketID   string `json:"ticket_id,omitempty"`
	Result     string `json:"result"`
	Reason     string `json:"reason,omitempty"`
	Remaining  *int64 `json:"remaining,omitempty"`
	Downgraded bool   `json:"downgraded,omitempty"`
}

type TicketRedeemedEvent struct {
	TicketID  string    `json:"ticket_id"`
	DeviceID  string    `json:"device_id"`
	ScannedAt time.Time `json:"scanned_at"`
	Remaining int64     `json:"remaining"`
}

// FraudSignalEvent is raised for validation failures and for advisory
// passes later invalidated authoritatively. It never reverses an
// admission already granted.
type FraudSignalEvent struct {
	Kind      string    `json:"kind"`
	TicketID  string    `json:"ticket_id,omitempty"`
	DeviceID  string    `json:"device_id"`
	Reason    string    `json:"reason,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}

const (
	FraudKindInvalidCredential = "invalid_credential"
	FraudKindAdvisoryDowngrade = "advisory_pass_downgraded"
)
