package redemption

type RedeemRequest struct {
	Credential string `json:"credential" validate:"required"`
	DeviceID   string `json:"device_id" validate:"required"`
}
