package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/redemption"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/sale"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/shift"
	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
)

type SyncUseCase interface {
	// ProcessBatch applies a device's queued operations in order. Each
	// operation commits or rolls back on its own; a retried batch only
	// re-applies the operations that did not commit the first time.
	ProcessBatch(ctx context.Context, req ProcessBatchRequest) (ProcessBatchResponse, error)
}

type syncUseCase struct {
	logger            *logrus.Logger
	timeout           time.Duration
	ledgerRepository  LedgerRepository
	saleUseCase       sale.SaleUseCase
	redemptionUseCase redemption.RedemptionUseCase
	shiftUseCase      shift.ShiftUseCase
}

type SyncUseCaseProperty struct {
	Logger            *logrus.Logger
	Timeout           time.Duration
	LedgerRepository  LedgerRepository
	SaleUseCase       sale.SaleUseCase
	RedemptionUseCase redemption.RedemptionUseCase
	ShiftUseCase      shift.ShiftUseCase
}

func NewSyncUseCase(props SyncUseCaseProperty) SyncUseCase {
	return &syncUseCase{
		logger:            props.Logger,
		timeout:           props.Timeout,
		ledgerRepository:  props.LedgerRepository,
		saleUseCase:       props.SaleUseCase,
		redemptionUseCase: props.RedemptionUseCase,
		shiftUseCase:      props.ShiftUseCase,
	}
}

// ProcessBatch implements SyncUseCase.
func (u *syncUseCase) ProcessBatch(ctx context.Context, req ProcessBatchRequest) (ProcessBatchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return ProcessBatchResponse{}, err
	}

	resp := ProcessBatchResponse{
		DeviceID: acc.DeviceID,
		Results:  make([]OperationResult, len(req.Operations)),
	}

	// Operations are applied strictly in queue order so that per-ticket
	// effects replay in the order the device observed them.
	for k, op := range req.Operations {
		result := u.applyOperation(ctx, acc.DeviceID, op)

		resp.Results[k] = result
		resp.Processed++
		if result.Status == OpStatusFailed {
			resp.Failed++
		} else {
			resp.Successful++
		}
	}

	return resp, nil
}

// applyOperation runs one operation's effects and its ledger entry in a
// single transaction.
func (u *syncUseCase) applyOperation(ctx context.Context, deviceID string, op Operation) OperationResult {
	tx, err := u.ledgerRepository.BeginTx(ctx)
	if err != nil {
		return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: errors.Destruct(err).Message}
	}

	exists, err := u.ledgerRepository.Exists(ctx, deviceID, op.OpID, tx)
	if err != nil {
		u.ledgerRepository.Rollback(ctx, tx)
		return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: errors.Destruct(err).Message}
	}

	if exists {
		u.ledgerRepository.Rollback(ctx, tx)
		return OperationResult{OpID: op.OpID, Status: OpStatusAlreadySynced}
	}

	result := OperationResult{OpID: op.OpID, Status: OpStatusSuccess}

	switch op.Type {
	case OpTypeRedemption:
		var e redemption.DeviceRedemptionEvent
		if err := json.Unmarshal(op.Payload, &e); err != nil {
			u.ledgerRepository.Rollback(ctx, tx)
			return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: "malformed redemption payload"}
		}

		verdict, err := u.redemptionUseCase.ApplyFromDevice(ctx, tx, deviceID, e)
		if err != nil {
			u.ledgerRepository.Rollback(ctx, tx)
			return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: errors.Destruct(err).Message}
		}

		result.Redemption = &verdict
	case OpTypeSale:
		var e sale.DeviceSaleEvent
		if err := json.Unmarshal(op.Payload, &e); err != nil {
			u.ledgerRepository.Rollback(ctx, tx)
			return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: "malformed sale payload"}
		}

		if _, err := u.saleUseCase.ApplyFromDevice(ctx, tx, deviceID, e); err != nil {
			u.ledgerRepository.Rollback(ctx, tx)
			return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: errors.Destruct(err).Message}
		}
	case OpTypeShiftOpen:
		var e shift.DeviceShiftOpenEvent
		if err := json.Unmarshal(op.Payload, &e); err != nil {
			u.ledgerRepository.Rollback(ctx, tx)
			return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: "malformed shift open payload"}
		}

		if err := u.shiftUseCase.ApplyOpenFromDevice(ctx, tx, deviceID, e); err != nil {
			u.ledgerRepository.Rollback(ctx, tx)
			return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: errors.Destruct(err).Message}
		}
	case OpTypeShiftClose:
		var e shift.DeviceShiftCloseEvent
		if err := json.Unmarshal(op.Payload, &e); err != nil {
			u.ledgerRepository.Rollback(ctx, tx)
			return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: "malformed shift close payload"}
		}

		if err := u.shiftUseCase.ApplyCloseFromDevice(ctx, tx, deviceID, e); err != nil {
			u.ledgerRepository.Rollback(ctx, tx)
			return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: errors.Destruct(err).Message}
		}
	default:
		u.ledgerRepository.Rollback(ctx, tx)
		return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: fmt.Sprintf("unknown operation type '%s'", op.Type)}
	}

	entry := LedgerEntry{
		DeviceID:  deviceID,
		OpID:      op.OpID,
		OpType:    op.Type,
		AppliedAt: time.Now(),
	}

	if err := u.ledgerRepository.Save(ctx, entry, tx); err != nil {
		u.ledgerRepository.Rollback(ctx, tx)
		return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: errors.Destruct(err).Message}
	}

	if err := u.ledgerRepository.CommitTx(ctx, tx); err != nil {
		return OperationResult{OpID: op.OpID, Status: OpStatusFailed, Reason: errors.Destruct(err).Message}
	}

	u.logger.WithContext(ctx).WithFields(logrus.Fields{
		"device_id": deviceID,
		"op_id":     op.OpID,
		"op_type":   op.Type,
	}).Info("device operation applied")

	return result
}
