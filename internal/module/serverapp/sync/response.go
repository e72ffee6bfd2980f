package sync

import "github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/redemption"

// OperationResult reports the outcome of applying one queued operation.
// A redemption the server refuses on business grounds is still a
// successfully synced operation; its authoritative verdict rides in
// Redemption. Failed is reserved for operations whose effects could not
// be applied at all.
type OperationResult struct {
	OpID       string                             `json:"op_id"`
	Status     string                             `json:"status"`
	Reason     string                             `json:"reason,omitempty"`
	Redemption *redemption.DeviceRedemptionResult `json:"redemption,omitempty"`
}

type ProcessBatchResponse struct {
	DeviceID   string            `json:"device_id"`
	Results    []OperationResult `json:"results"`
	Processed  int64             `json:"processed"`
	Successful int64             `json:"successful"`
	Failed     int64             `json:"failed"`
}
