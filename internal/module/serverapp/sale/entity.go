package sale

import "time"

// Sale is a completed point-of-sale transaction. It doubles as the lot
// its tickets are issued under.
type Sale struct {
	ID        string
	DeviceID  string
	ShiftID   string
	CashierID string
	Subtotal  float64
	Total     float64
	Lines     []Line
	CreatedAt time.Time
}

type Line struct {
	ID        int64
	SaleID    string
	PackageID string
	Quantity  int64
	UnitPrice float64
}
