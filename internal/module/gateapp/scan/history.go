package scan

import (
	"context"
	"time"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/gateapp/cache"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
)

// localHistory answers the decision rules from the device-local cache.
// The cached ticket carries the server-side counters as of the last
// bootstrap; local_redemption rows carry everything this gate decided
// since.
type localHistory struct {
	ticket  ticketing.Ticket
	history cache.LocalHistoryRepository
	cached  bool
}

// UsedCount implements redeem.History. Local passes move the cached
// counter, so for a cached ticket the counter alone reflects both
// tiers. A ticket absent from the snapshot has no cached counter to
// move; its committed passes live only in the local redemption rows.
func (h localHistory) UsedCount(ctx context.Context, ticketID string) (int64, error) {
	if h.cached {
		return h.ticket.Used, nil
	}

	return h.history.CountPasses(ctx, ticketID)
}

// LastPassAt implements redeem.History. Only this gate's own passes are
// visible offline; passes at other devices surface after the next sync.
func (h localHistory) LastPassAt(ctx context.Context, ticketID string) (*time.Time, error) {
	return h.history.FindLastPassAt(ctx, ticketID)
}

// ElapsedMinutes implements redeem.History. The snapshot's consumed
// minutes and the clock since this gate's first pass overlap when both
// exist; the larger of the two is the safer advisory estimate.
func (h localHistory) ElapsedMinutes(ctx context.Context, ticketID string, now time.Time) (int64, error) {
	firstPass, err := h.history.FindFirstPassAt(ctx, ticketID)
	if err != nil {
		return 0, err
	}

	elapsed := h.ticket.Used
	if firstPass != nil {
		sinceFirst := int64(now.Sub(*firstPass) / time.Minute)
		if sinceFirst > elapsed {
			elapsed = sinceFirst
		}
	}

	return elapsed, nil
}
