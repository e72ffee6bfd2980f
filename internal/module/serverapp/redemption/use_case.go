package redemption

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/ticket"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing/redeem"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing/sign"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/pubsub"
)

type RedemptionUseCase interface {
	// Redeem adjudicates an online scan authoritatively.
	Redeem(ctx context.Context, req RedeemRequest) (RedeemResponse, error)
	// ApplyFromDevice re-adjudicates an offline redemption inside the
	// sync coordinator's transaction.
	ApplyFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e DeviceRedemptionEvent) (DeviceRedemptionResult, error)
}

type redemptionUseCase struct {
	logger               *logrus.Logger
	timeout              time.Duration
	keyring              *sign.Keyring
	policy               redeem.Policy
	ticketRepository     ticket.TicketRepository
	redemptionRepository RedemptionRepository
	publisher            pubsub.Publisher
}

type RedemptionUseCaseProperty struct {
	Logger               *logrus.Logger
	Timeout              time.Duration
	Keyring              *sign.Keyring
	Policy               redeem.Policy
	TicketRepository     ticket.TicketRepository
	RedemptionRepository RedemptionRepository
	Publisher            pubsub.Publisher
}

func NewRedemptionUseCase(props RedemptionUseCaseProperty) RedemptionUseCase {
	return &redemptionUseCase{
		logger:               props.Logger,
		timeout:              props.Timeout,
		keyring:              props.Keyring,
		policy:               props.Policy,
		ticketRepository:     props.TicketRepository,
		redemptionRepository: props.RedemptionRepository,
		publisher:            props.Publisher,
	}
}

// Redeem implements RedemptionUseCase.
func (u *redemptionUseCase) Redeem(ctx context.Context, req RedeemRequest) (RedeemResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	tx, err := u.ticketRepository.BeginTx(ctx)
	if err != nil {
		return RedeemResponse{}, err
	}

	scan := redeem.Scan{DeviceID: req.DeviceID, At: time.Now()}

	result, err := u.adjudicate(ctx, tx, req.Credential, scan, false, false)
	if err != nil {
		u.ticketRepository.Rollback(ctx, tx)
		return RedeemResponse{}, err
	}

	if err := u.ticketRepository.CommitTx(ctx, tx); err != nil {
		return RedeemResponse{}, err
	}

	return RedeemResponse{
		TicketID:  result.TicketID,
		Result:    result.Result,
		Reason:    result.Reason,
		Remaining: result.Remaining,
	}, nil
}

// ApplyFromDevice implements RedemptionUseCase.
func (u *redemptionUseCase) ApplyFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e DeviceRedemptionEvent) (DeviceRedemptionResult, error) {
	scan := redeem.Scan{DeviceID: deviceID, At: e.ScannedAt}
	advisoryPassed := e.AdvisoryResult == OutcomePass

	result, err := u.adjudicate(ctx, tx, e.Credential, scan, true, advisoryPassed)
	if err != nil {
		return DeviceRedemptionResult{}, err
	}

	return result, nil
}

// adjudicate runs the decision rules against the authoritative history
// and commits the effects of a pass, all under the caller's
// transaction. When provisional is set the scan was already granted or
// refused at a gate; a provisional pass that fails here is downgraded
// to a fraud signal, never reversed.
func (u *redemptionUseCase) adjudicate(ctx context.Context, tx *sql.Tx, encodedCredential string, scan redeem.Scan, provisional, advisoryPassed bool) (DeviceRedemptionResult, error) {
	cred, err := ticketing.DecodeCredential(encodedCredential)
	if err != nil {
		u.logger.WithContext(ctx).WithError(err).WithField("device_id", scan.DeviceID).Warn("malformed credential presented")
		u.publishFraudSignal(ctx, FraudSignalEvent{
			Kind:      FraudKindInvalidCredential,
			DeviceID:  scan.DeviceID,
			Reason:    string(ticketing.ReasonInvalidSignature),
			ScannedAt: scan.At,
		})

		return failResult("", ticketing.ReasonInvalidSignature, provisional && advisoryPassed), nil
	}

	t, err := u.ticketRepository.FindByIDForUpdate(ctx, cred.TicketID, tx)
	if err != nil {
		if ae := errors.Destruct(err); ae.HTTPStatusCode != http.StatusNotFound {
			return DeviceRedemptionResult{}, err
		}

		// An unknown ticket id adjudicates as an invalid signature and
		// is flagged as potential fraud.
		u.publishFraudSignal(ctx, FraudSignalEvent{
			Kind:      FraudKindInvalidCredential,
			TicketID:  cred.TicketID,
			DeviceID:  scan.DeviceID,
			Reason:    string(ticketing.ReasonInvalidSignature),
			ScannedAt: scan.At,
		})

		return failResult(cred.TicketID, ticketing.ReasonInvalidSignature, provisional && advisoryPassed), nil
	}

	signatureValid := u.keyring.Verify(sign.FieldsFromCredential(cred), cred.Signature, cred.KeyVersion) &&
		cred.Token == t.Token &&
		t.Status != ticketing.TicketStatusCancelled

	history := txHistory{ticket: t, repo: u.redemptionRepository, tx: tx}

	outcome, err := redeem.Adjudicate(ctx, t, signatureValid, scan, history, u.policy)
	if err != nil {
		return DeviceRedemptionResult{}, err
	}

	downgraded := provisional && advisoryPassed && outcome.Result == redeem.ResultFail

	rdm := Redemption{
		ID:          uuid.NewString(),
		TicketID:    t.ID,
		DeviceID:    scan.DeviceID,
		ScannedAt:   scan.At,
		Provisional: provisional,
		Downgraded:  downgraded,
		CreatedAt:   time.Now(),
	}

	if outcome.Result == redeem.ResultPass {
		if err := u.commitPass(ctx, tx, t, scan, outcome); err != nil {
			return DeviceRedemptionResult{}, err
		}

		rdm.Outcome = OutcomePass
		remaining := outcome.Remaining
		rdm.Remaining = &remaining

		if err := u.redemptionRepository.Save(ctx, rdm, tx); err != nil {
			return DeviceRedemptionResult{}, err
		}

		eventBuff, _ := json.Marshal(TicketRedeemedEvent{
			TicketID:  t.ID,
			DeviceID:  scan.DeviceID,
			ScannedAt: scan.At,
			Remaining: outcome.Remaining,
		})
		u.publisher.Publish(ctx, "ticket-redeemed", t.ID, nil, eventBuff)

		return DeviceRedemptionResult{TicketID: t.ID, Result: OutcomePass, Remaining: &remaining}, nil
	}

	reason := outcome.Reason
	rdm.Outcome = OutcomeFail
	rdm.FailReason = &reason

	if err := u.redemptionRepository.Save(ctx, rdm, tx); err != nil {
		return DeviceRedemptionResult{}, err
	}

	// The ticket crossed its validity window: record the forward status
	// transition.
	if reason == ticketing.ReasonExpired && t.Status == ticketing.TicketStatusActive {
		if err := u.ticketRepository.UpdateUsage(ctx, t.ID, t.Used, ticketing.TicketStatusExpired, tx); err != nil {
			return DeviceRedemptionResult{}, err
		}
	}

	if reason == ticketing.ReasonInvalidSignature {
		u.publishFraudSignal(ctx, FraudSignalEvent{
			Kind:      FraudKindInvalidCredential,
			TicketID:  t.ID,
			DeviceID:  scan.DeviceID,
			Reason:    string(reason),
			ScannedAt: scan.At,
		})
	}

	if downgraded {
		u.publishFraudSignal(ctx, FraudSignalEvent{
			Kind:      FraudKindAdvisoryDowngrade,
			TicketID:  t.ID,
			DeviceID:  scan.DeviceID,
			Reason:    string(reason),
			ScannedAt: scan.At,
		})
	}

	return failResult(t.ID, reason, downgraded), nil
}

// commitPass applies the single atomic unit of a pass: the counter
// moves and the status follows, under the row lock taken by
// FindByIDForUpdate.
func (u *redemptionUseCase) commitPass(ctx context.Context, tx *sql.Tx, t ticketing.Ticket, scan redeem.Scan, outcome redeem.Outcome) error {
	used := t.Used
	ticketStatus := t.Status

	switch t.Type {
	case ticketing.TicketTypeTimepass:
		// For a timepass the counter tracks consumed minutes, so it
		// stays bounded by the minute budget.
		used = t.QuotaOrMinutes - outcome.Remaining
	default:
		used++
		if used >= t.QuotaOrMinutes {
			ticketStatus = ticketing.TicketStatusUsed
		}
	}

	return u.ticketRepository.UpdateUsage(ctx, t.ID, used, ticketStatus, tx)
}

func (u *redemptionUseCase) publishFraudSignal(ctx context.Context, e FraudSignalEvent) {
	eventBuff, _ := json.Marshal(e)
	u.publisher.Publish(ctx, "fraud-signal", e.DeviceID, nil, eventBuff)
}

func failResult(ticketID string, reason ticketing.FailReason, downgraded bool) DeviceRedemptionResult {
	return DeviceRedemptionResult{
		TicketID:   ticketID,
		Result:     OutcomeFail,
		Reason:     reason.Code(),
		Downgraded: downgraded,
	}
}
