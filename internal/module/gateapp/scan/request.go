package scan

type ScanRequest struct {
	Credential string `json:"credential" validate:"required"`
}
