package scan

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/gateapp/cache"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/gateapp/outbox"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing/redeem"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing/sign"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
)

type ScanUseCase interface {
	// Scan adjudicates a credential from the local cache and queues the
	// decision for authoritative sync. It never waits on the network.
	Scan(ctx context.Context, req ScanRequest) (ScanResponse, error)
}

type scanUseCase struct {
	logger        *logrus.Logger
	timeout       time.Duration
	deviceID      string
	keyring       *sign.Keyring
	policy        redeem.Policy
	ticketCache   cache.TicketCacheRepository
	historyRepo   cache.LocalHistoryRepository
	outboxUseCase outbox.OutboxUseCase
	drainer       *outbox.Drainer
	now           func() time.Time
}

type ScanUseCaseProperty struct {
	Logger        *logrus.Logger
	Timeout       time.Duration
	DeviceID      string
	Keyring       *sign.Keyring
	Policy        redeem.Policy
	TicketCache   cache.TicketCacheRepository
	HistoryRepo   cache.LocalHistoryRepository
	OutboxUseCase outbox.OutboxUseCase
	Drainer       *outbox.Drainer
}

func NewScanUseCase(props ScanUseCaseProperty) ScanUseCase {
	return &scanUseCase{
		logger:        props.Logger,
		timeout:       props.Timeout,
		deviceID:      props.DeviceID,
		keyring:       props.Keyring,
		policy:        props.Policy,
		ticketCache:   props.TicketCache,
		historyRepo:   props.HistoryRepo,
		outboxUseCase: props.OutboxUseCase,
		drainer:       props.Drainer,
		now:           time.Now,
	}
}

// redemptionOpPayload is the sync wire form of one advisory decision.
type redemptionOpPayload struct {
	Credential     string    `json:"credential"`
	ScannedAt      time.Time `json:"scanned_at"`
	AdvisoryResult string    `json:"advisory_result"`
	AdvisoryReason string    `json:"advisory_reason,omitempty"`
}

// Scan implements ScanUseCase.
func (u *scanUseCase) Scan(ctx context.Context, req ScanRequest) (ScanResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	scannedAt := u.now()

	d, err := u.adjudicate(ctx, req.Credential, scannedAt)
	if err != nil {
		return ScanResponse{}, err
	}

	// The decision is queued durably before any local effect commits
	// and before this function returns; the scanner front-end never
	// waits on the server.
	opID, err := u.outboxUseCase.Enqueue(ctx, "redemption", redemptionOpPayload{
		Credential:     req.Credential,
		ScannedAt:      scannedAt,
		AdvisoryResult: d.resp.Result,
		AdvisoryReason: d.resp.Reason,
	})
	if err != nil {
		// A full queue forces a drain attempt right away.
		if ae := errors.Destruct(err); ae.HTTPStatusCode == http.StatusInsufficientStorage && u.drainer != nil {
			u.drainer.Kick()
		}

		return ScanResponse{}, err
	}

	d.resp.OpID = opID

	if d.resp.Result == cache.OutcomePass {
		if err := u.commitPass(ctx, d.ticket, d.outcome, d.cached); err != nil {
			return ScanResponse{}, err
		}
	}

	failReason := d.resp.Reason
	rec := cache.LocalRedemption{
		OpID:      opID,
		TicketID:  d.resp.TicketID,
		Outcome:   d.resp.Result,
		ScannedAt: scannedAt,
	}
	if d.resp.Result == cache.OutcomeFail {
		rec.FailReason = &failReason
	}

	if err := u.historyRepo.Save(ctx, rec); err != nil {
		return ScanResponse{}, err
	}

	if u.drainer != nil {
		u.drainer.Kick()
	}

	return d.resp, nil
}

// decision is an adjudicated scan whose effects have not committed yet.
type decision struct {
	resp    ScanResponse
	ticket  ticketing.Ticket
	outcome redeem.Outcome
	cached  bool
}

func (u *scanUseCase) adjudicate(ctx context.Context, encodedCredential string, scannedAt time.Time) (decision, error) {
	cred, err := ticketing.DecodeCredential(encodedCredential)
	if err != nil {
		u.logger.WithContext(ctx).WithError(err).Warn("malformed credential presented")
		return decision{resp: ScanResponse{
			Result: cache.OutcomeFail,
			Reason: ticketing.ReasonInvalidSignature.Code(),
		}}, nil
	}

	t, cached, err := u.lookupTicket(ctx, cred)
	if err != nil {
		return decision{}, err
	}

	signatureValid := u.keyring.Verify(sign.FieldsFromCredential(cred), cred.Signature, cred.KeyVersion) &&
		t.Status != ticketing.TicketStatusCancelled
	if cached {
		signatureValid = signatureValid && cred.Token == t.Token
	}

	scan := redeem.Scan{DeviceID: u.deviceID, At: scannedAt}
	history := localHistory{ticket: t, history: u.historyRepo, cached: cached}

	outcome, err := redeem.Adjudicate(ctx, t, signatureValid, scan, history, u.policy)
	if err != nil {
		return decision{}, err
	}

	if outcome.Result == redeem.ResultPass {
		remaining := outcome.Remaining

		return decision{
			resp: ScanResponse{
				TicketID:  t.ID,
				Result:    cache.OutcomePass,
				Remaining: &remaining,
			},
			ticket:  t,
			outcome: outcome,
			cached:  cached,
		}, nil
	}

	return decision{
		resp: ScanResponse{
			TicketID: t.ID,
			Result:   cache.OutcomeFail,
			Reason:   outcome.Reason.Code(),
		},
		ticket:  t,
		outcome: outcome,
		cached:  cached,
	}, nil
}

// lookupTicket resolves the scanned ticket from the bootstrap cache,
// falling back to the credential's own fields for tickets issued after
// the cache was taken. A fallback ticket has no usage baseline, only
// what this gate has seen.
func (u *scanUseCase) lookupTicket(ctx context.Context, cred ticketing.Credential) (ticketing.Ticket, bool, error) {
	t, err := u.ticketCache.FindByID(ctx, cred.TicketID)
	if err == nil {
		return t, true, nil
	}

	if ae := errors.Destruct(err); ae.HTTPStatusCode != http.StatusNotFound {
		return ticketing.Ticket{}, false, err
	}

	return ticketing.Ticket{
		ID:             cred.TicketID,
		Token:          cred.Token,
		Signature:      cred.Signature,
		KeyVersion:     cred.KeyVersion,
		Type:           ticketing.TicketType(cred.Type),
		QuotaOrMinutes: cred.QuotaOrMinutes,
		ValidFrom:      cred.ValidFromTime(),
		ValidTo:        cred.ValidToTime(),
		LotID:          cred.LotID,
		Status:         ticketing.TicketStatusActive,
	}, false, nil
}

func (u *scanUseCase) commitPass(ctx context.Context, t ticketing.Ticket, outcome redeem.Outcome, cached bool) error {
	if !cached {
		return nil
	}

	used := t.Used
	ticketStatus := t.Status

	switch t.Type {
	case ticketing.TicketTypeTimepass:
		used = t.QuotaOrMinutes - outcome.Remaining
	default:
		used++
		if used >= t.QuotaOrMinutes {
			ticketStatus = ticketing.TicketStatusUsed
		}
	}

	return u.ticketCache.UpdateUsage(ctx, t.ID, used, ticketStatus)
}
