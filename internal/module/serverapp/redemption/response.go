package redemption

type RedeemResponse struct {
	TicketID  string `json:"ticket_id,omitempty"`
	Result    string `json:"result"`
	Reason    string `json:"reason,omitempty"`
	Remaining *int64 `json:"remaining,omitempty"`
}
