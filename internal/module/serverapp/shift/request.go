package shift

type OpenShiftRequest struct {
	CashierID    string  `json:"cashier_id" validate:"required"`
	OpeningFloat float64 `json:"opening_float" validate:"gte=0"`
}

type CloseShiftRequest struct {
	ShiftID      string  `json:"shift_id" validate:"required"`
	ClosingTotal float64 `json:"closing_total" validate:"gte=0"`
}
