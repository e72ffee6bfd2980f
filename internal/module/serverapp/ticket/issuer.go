package ticket

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/catalog"
	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/util"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing/sign"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

// Issuer mints signed tickets from completed sale lines. Persisting
// them atomically with the sale is the sale use case's job; the issuer
// guarantees no ticket it returns is unsigned.
type Issuer struct {
	keyring          *sign.Keyring
	activeKeyVersion string
	now              func() time.Time
}

func NewIssuer(keyring *sign.Keyring, activeKeyVersion string) *Issuer {
	return &Issuer{
		keyring:          keyring,
		activeKeyVersion: activeKeyVersion,
		now:              time.Now,
	}
}

type IssueRequest struct {
	Package  catalog.Package
	Quantity int64
	LotID    string
	ShiftID  string
}

// Issue mints one ticket per unit for single, multi and credit
// packages. A timepass bought in quantity greater than one becomes a
// single aggregated ticket carrying the summed minute budget.
func (i *Issuer) Issue(req IssueRequest) ([]ticketing.Ticket, error) {
	if req.Quantity < 1 {
		return nil, errors.New(http.StatusBadRequest, status.BAD_REQUEST, "quantity must be at least 1")
	}

	now := i.now()
	validFrom, validTo := i.validityWindow(req.Package, now)

	count := req.Quantity
	quota := req.Package.QuotaOrMinutes
	if req.Package.Type == ticketing.TicketTypeTimepass {
		count = 1
		quota = req.Package.QuotaOrMinutes * req.Quantity
	}

	tickets := make([]ticketing.Ticket, 0, count)
	for n := int64(0); n < count; n++ {
		t := ticketing.Ticket{
			ID:             fmt.Sprintf("TK-%s", uuid.NewString()),
			ShortCode:      util.GenerateShortCode(8),
			Token:          uuid.NewString(),
			KeyVersion:     i.activeKeyVersion,
			Type:           req.Package.Type,
			QuotaOrMinutes: quota,
			ValidFrom:      validFrom,
			ValidTo:        validTo,
			LotID:          req.LotID,
			ShiftID:        req.ShiftID,
			Price:          req.Package.Price,
			IssuedAt:       now,
			Used:           0,
			Status:         ticketing.TicketStatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		signature, err := i.keyring.Sign(sign.FieldsFromTicket(t), i.activeKeyVersion)
		if err != nil {
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while signing ticket")
		}
		t.Signature = signature

		tickets = append(tickets, t)
	}

	return tickets, nil
}

func (i *Issuer) validityWindow(p catalog.Package, now time.Time) (time.Time, time.Time) {
	if p.ValidityMinutes != nil {
		return now, now.Add(time.Duration(*p.ValidityMinutes) * time.Minute)
	}

	switch p.Type {
	case ticketing.TicketTypeSingle:
		endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
		return now, endOfDay
	case ticketing.TicketTypeMulti:
		return now, now.Add(30 * 24 * time.Hour)
	case ticketing.TicketTypeTimepass:
		return now, now.Add(8 * time.Hour)
	case ticketing.TicketTypeCredit:
		return now, now.Add(365 * 24 * time.Hour)
	}

	return now, now.Add(24 * time.Hour)
}
