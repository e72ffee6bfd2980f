package sale

import "time"

// DeviceSaleEvent is an offline sale replayed from a gate device's
// outbox during sync.
type DeviceSaleEvent struct {
	ShiftID   string        `json:"shift_id"`
	CashierID string        `json:"cashier_id"`
	Lines     []LineRequest `json:"lines"`
	SoldAt    time.Time     `json:"sold_at"`
}

type TicketIssuedEvent struct {
	SaleID    string   `json:"sale_id"`
	TicketIDs []string `json:"ticket_ids"`
	DeviceID  string   `json:"device_id"`
	ShiftID   string   `json:"shift_id"`
}
