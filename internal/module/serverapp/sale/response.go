package sale

import (
	"time"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
)

type PlaceSaleResponse struct {
	ID        string           `json:"id"`
	DeviceID  string           `json:"device_id"`
	ShiftID   string           `json:"shift_id"`
	CashierID string           `json:"cashier_id"`
	Subtotal  float64          `json:"subtotal"`
	Total     float64          `json:"total"`
	Tickets   []TicketResponse `json:"tickets"`
	CreatedAt time.Time        `json:"created_at"`
}

type TicketResponse struct {
	ID             string    `json:"id"`
	ShortCode      string    `json:"short_code"`
	Type           string    `json:"type"`
	QuotaOrMinutes int64     `json:"quota_or_minutes"`
	ValidFrom      time.Time `json:"valid_from"`
	ValidTo        time.Time `json:"valid_to"`
	Credential     string    `json:"credential"`
}

func (r *PlaceSaleResponse) PopulateFromEntity(s Sale, tickets []ticketing.Ticket) {
	r.ID = s.ID
	r.DeviceID = s.DeviceID
	r.ShiftID = s.ShiftID
	r.CashierID = s.CashierID
	r.Subtotal = s.Subtotal
	r.Total = s.Total
	r.CreatedAt = s.CreatedAt

	ticketsResponse := make([]TicketResponse, len(tickets))
	for k, t := range tickets {
		ticketsResponse[k] = TicketResponse{
			ID:             t.ID,
			ShortCode:      t.ShortCode,
			Type:           string(t.Type),
			QuotaOrMinutes: t.QuotaOrMinutes,
			ValidFrom:      t.ValidFrom,
			ValidTo:        t.ValidTo,
			Credential:     ticketing.CredentialFromTicket(t).Encode(),
		}
	}
	r.Tickets = ticketsResponse
}
