// Package redeem holds the redemption decision rules. The same rules
// run on the server against full history and on a disconnected gate
// against its bootstrap-window history; only the History implementation
// differs between the two trust tiers.
package redeem

import (
	"context"
	"time"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
)

type Result string

const (
	ResultPass Result = "pass"
	ResultFail Result = "fail"
)

// Scan is one presentation of a credential at a device.
type Scan struct {
	DeviceID string
	At       time.Time
}

// Policy carries the tenant-tunable knobs of the decision rules.
type Policy struct {
	// ReplayWindow guards against re-presenting a credential before
	// state propagates between devices.
	ReplayWindow time.Duration
}

const DefaultReplayWindow = 5 * time.Minute

func (p Policy) replayWindow() time.Duration {
	if p.ReplayWindow <= 0 {
		return DefaultReplayWindow
	}

	return p.ReplayWindow
}

// History is the redemption record the decision runs against. The
// authoritative tier backs it with the full Redemption table, the
// advisory tier with the device-local cache.
type History interface {
	// UsedCount returns the number of committed passes for the ticket.
	UsedCount(ctx context.Context, ticketID string) (int64, error)
	// LastPassAt returns the time of the most recent pass, or nil when
	// the ticket has never passed.
	LastPassAt(ctx context.Context, ticketID string) (*time.Time, error)
	// ElapsedMinutes returns the minutes consumed by a timepass ticket
	// up to now, zero when it has never passed.
	ElapsedMinutes(ctx context.Context, ticketID string, now time.Time) (int64, error)
}

type Outcome struct {
	Result    Result
	Reason    ticketing.FailReason
	Remaining int64
}

// Adjudicate evaluates one scan against the ticket and its history.
// The rules run in fixed priority order and the first match wins:
// invalid_signature, not_started, expired, quota_exhausted,
// duplicate_use, wrong_device, pass. Overlapping conditions are common
// and the order is part of the contract.
//
// Adjudicate is pure with respect to state: committing the pass
// (incrementing the used counter, persisting the Redemption) is the
// caller's job, under whatever atomicity its tier provides.
func Adjudicate(ctx context.Context, t ticketing.Ticket, signatureValid bool, scan Scan, h History, p Policy) (Outcome, error) {
	if !signatureValid {
		return fail(ticketing.ReasonInvalidSignature), nil
	}

	if scan.At.Before(t.ValidFrom) {
		return fail(ticketing.ReasonNotStarted), nil
	}

	if scan.At.After(t.ValidTo) {
		return fail(ticketing.ReasonExpired), nil
	}

	used, err := h.UsedCount(ctx, t.ID)
	if err != nil {
		return Outcome{}, err
	}

	lastPass, err := h.LastPassAt(ctx, t.ID)
	if err != nil {
		return Outcome{}, err
	}

	// A pass inside the replay window is the same physical
	// presentation still propagating, so it does not count toward the
	// quota check and the scan is reported as duplicate_use below, not
	// as quota_exhausted.
	replayed := lastPass != nil && scan.At.Sub(*lastPass) < p.replayWindow()

	var remaining int64
	switch t.Type {
	case ticketing.TicketTypeTimepass:
		elapsed, err := h.ElapsedMinutes(ctx, t.ID, scan.At)
		if err != nil {
			return Outcome{}, err
		}

		if elapsed >= t.QuotaOrMinutes {
			return fail(ticketing.ReasonQuotaExhausted), nil
		}

		remaining = t.QuotaOrMinutes - elapsed
	default:
		effectiveUsed := used
		if replayed && effectiveUsed > 0 {
			effectiveUsed--
		}

		if effectiveUsed >= t.QuotaOrMinutes {
			return fail(ticketing.ReasonQuotaExhausted), nil
		}

		remaining = t.QuotaOrMinutes - used - 1
	}

	if replayed {
		return fail(ticketing.ReasonDuplicateUse), nil
	}

	if !t.BoundTo(scan.DeviceID) {
		return fail(ticketing.ReasonWrongDevice), nil
	}

	return Outcome{Result: ResultPass, Remaining: remaining}, nil
}

func fail(reason ticketing.FailReason) Outcome {
	return Outcome{Result: ResultFail, Reason: reason}
}
