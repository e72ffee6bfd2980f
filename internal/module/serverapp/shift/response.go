package shift

import "time"

type ShiftResponse struct {
	ID           string     `json:"id"`
	DeviceID     string     `json:"device_id"`
	CashierID    string     `json:"cashier_id"`
	OpeningFloat float64    `json:"opening_float"`
	ClosingTotal *float64   `json:"closing_total,omitempty"`
	Status       string     `json:"status"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

func (r *ShiftResponse) PopulateFromEntity(s Shift) {
	r.ID = s.ID
	r.DeviceID = s.DeviceID
	r.CashierID = s.CashierID
	r.OpeningFloat = s.OpeningFloat
	r.ClosingTotal = s.ClosingTotal
	r.Status = s.Status
	r.OpenedAt = s.OpenedAt
	r.ClosedAt = s.ClosedAt
}
