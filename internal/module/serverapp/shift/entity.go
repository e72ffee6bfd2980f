package shift

import "time"

// Shift is one cashier session at a device. Cash reconciliation lives
// in the back office; this module only tracks the open/close lifecycle
// tickets and sales are recorded under.
type Shift struct {
	ID           string
	DeviceID     string
	CashierID    string
	OpeningFloat float64
	ClosingTotal *float64
	Status       string
	OpenedAt     time.Time
	ClosedAt     *time.Time
}

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)
