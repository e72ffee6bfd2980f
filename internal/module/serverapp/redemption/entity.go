package redemption

import (
	"time"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
)

// Redemption is the append-only record of one adjudicated scan. Rows
// are never updated or deleted; the ticket's used counter is driven by
// the pass rows.
type Redemption struct {
	ID          string
	TicketID    string
	DeviceID    string
	ScannedAt   time.Time
	Outcome     string
	FailReason  *ticketing.FailReason
	Remaining   *int64
	Provisional bool
	Downgraded  bool
	CreatedAt   time.Time
}

const (
	OutcomePass = "pass"
	OutcomeFail = "fail"
)
