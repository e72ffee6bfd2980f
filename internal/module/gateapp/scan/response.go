package scan

// ScanResponse is the gate's advisory verdict. The server has the last
// word when the queued operation syncs; OpID ties the two together.
type ScanResponse struct {
	TicketID  string `json:"ticket_id,omitempty"`
	Result    string `json:"result"`
	Reason    string `json:"reason,omitempty"`
	Remaining *int64 `json:"remaining,omitempty"`
	OpID      string `json:"op_id"`
}
