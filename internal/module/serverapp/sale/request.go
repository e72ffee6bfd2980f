package sale

type LineRequest struct {
	PackageID string `json:"package_id" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"required,min=1"`
}

type PlaceSaleRequest struct {
	ShiftID   string        `json:"shift_id" validate:"required"`
	CashierID string        `json:"cashier_id" validate:"required"`
	Lines     []LineRequest `json:"lines" validate:"required,min=1,dive"`
}
