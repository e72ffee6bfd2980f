package redemption

import (
	"context"
	"database/sql"
	"time"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
)

// txHistory backs the decision engine with the full authoritative
// history, scoped to the transaction holding the ticket's row lock.
type txHistory struct {
	ticket ticketing.Ticket
	repo   RedemptionRepository
	tx     *sql.Tx
}

// UsedCount implements redeem.History. The locked ticket row is the
// source of truth for committed passes.
func (h txHistory) UsedCount(ctx context.Context, ticketID string) (int64, error) {
	return h.ticket.Used, nil
}

// LastPassAt implements redeem.History.
func (h txHistory) LastPassAt(ctx context.Context, ticketID string) (*time.Time, error) {
	return h.repo.FindLastPassAt(ctx, ticketID, h.tx)
}

// ElapsedMinutes implements redeem.History. A timepass starts consuming
// its minute budget at its first committed pass.
func (h txHistory) ElapsedMinutes(ctx context.Context, ticketID string, now time.Time) (int64, error) {
	first, err := h.repo.FindFirstPassAt(ctx, ticketID, h.tx)
	if err != nil {
		return 0, err
	}

	if first == nil {
		return 0, nil
	}

	return int64(now.Sub(*first).Minutes()), nil
}
