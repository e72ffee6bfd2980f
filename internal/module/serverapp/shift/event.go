package shift

import "time"

// DeviceShiftOpenEvent is an offline shift open replayed from a gate
// device's outbox during sync.
type DeviceShiftOpenEvent struct {
	ShiftID      string    `json:"shift_id"`
	CashierID    string    `json:"cashier_id"`
	OpeningFloat float64   `json:"opening_float"`
	OpenedAt     time.Time `json:"opened_at"`
}

type DeviceShiftCloseEvent struct {
	ShiftID      string    `json:"shift_id"`
	ClosingTotal float64   `json:"closing_total"`
	ClosedAt     time.Time `json:"closed_at"`
}
