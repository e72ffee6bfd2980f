package ticket

import (
	"time"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
)

type GetTicketResponse struct {
	ID             string    `json:"id"`
	ShortCode      string    `json:"short_code"`
	Type           string    `json:"type"`
	QuotaOrMinutes int64     `json:"quota_or_minutes"`
	Used           int64     `json:"used"`
	Remaining      int64     `json:"remaining"`
	Status         string    `json:"status"`
	ValidFrom      time.Time `json:"valid_from"`
	ValidTo        time.Time `json:"valid_to"`
	LotID          string    `json:"lot_id"`
	ShiftID        string    `json:"shift_id"`
	Price          float64   `json:"price"`
	IssuedAt       time.Time `json:"issued_at"`
	Credential     string    `json:"credential"`
}

func (r *GetTicketResponse) PopulateFromEntity(t ticketing.Ticket) {
	r.ID = t.ID
	r.ShortCode = t.ShortCode
	r.Type = string(t.Type)
	r.QuotaOrMinutes = t.QuotaOrMinutes
	r.Used = t.Used
	r.Remaining = t.QuotaOrMinutes - t.Used
	r.Status = string(t.Status)
	r.ValidFrom = t.ValidFrom
	r.ValidTo = t.ValidTo
	r.LotID = t.LotID
	r.ShiftID = t.ShiftID
	r.Price = t.Price
	r.IssuedAt = t.IssuedAt
	r.Credential = ticketing.CredentialFromTicket(t).Encode()
}
