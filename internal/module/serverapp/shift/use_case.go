package shift

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/util"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type ShiftUseCase interface {
	Open(ctx context.Context, req OpenShiftRequest) (ShiftResponse, error)
	Close(ctx context.Context, req CloseShiftRequest) (ShiftResponse, error)
	// ApplyOpenFromDevice and ApplyCloseFromDevice replay offline shift
	// lifecycle events inside the sync coordinator's transaction.
	ApplyOpenFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e DeviceShiftOpenEvent) error
	ApplyCloseFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e DeviceShiftCloseEvent) error
}

type shiftUseCase struct {
	logger          *logrus.Logger
	timeout         time.Duration
	shiftRepository ShiftRepository
}

type ShiftUseCaseProperty struct {
	Logger          *logrus.Logger
	Timeout         time.Duration
	ShiftRepository ShiftRepository
}

func NewShiftUseCase(props ShiftUseCaseProperty) ShiftUseCase {
	return &shiftUseCase{
		logger:          props.Logger,
		timeout:         props.Timeout,
		shiftRepository: props.ShiftRepository,
	}
}

// Open implements ShiftUseCase.
func (u *shiftUseCase) Open(ctx context.Context, req OpenShiftRequest) (ShiftResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return ShiftResponse{}, err
	}

	s := Shift{
		ID:           util.GenerateTimestampWithPrefix("SH"),
		DeviceID:     acc.DeviceID,
		CashierID:    req.CashierID,
		OpeningFloat: req.OpeningFloat,
		Status:       StatusOpen,
		OpenedAt:     time.Now(),
	}

	if err := u.shiftRepository.Save(ctx, s, nil); err != nil {
		return ShiftResponse{}, err
	}

	resp := ShiftResponse{}
	resp.PopulateFromEntity(s)

	return resp, nil
}

// Close implements ShiftUseCase.
func (u *shiftUseCase) Close(ctx context.Context, req CloseShiftRequest) (ShiftResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	s, err := u.shiftRepository.FindByID(ctx, req.ShiftID, nil)
	if err != nil {
		return ShiftResponse{}, err
	}

	if s.Status != StatusOpen {
		return ShiftResponse{}, errors.New(http.StatusConflict, status.CONFLICT, "shift is already closed")
	}

	closedAt := time.Now()
	if err := u.shiftRepository.Close(ctx, s.ID, req.ClosingTotal, closedAt, nil); err != nil {
		return ShiftResponse{}, err
	}

	s.Status = StatusClosed
	s.ClosingTotal = &req.ClosingTotal
	s.ClosedAt = &closedAt

	resp := ShiftResponse{}
	resp.PopulateFromEntity(s)

	return resp, nil
}

// ApplyOpenFromDevice implements ShiftUseCase.
func (u *shiftUseCase) ApplyOpenFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e DeviceShiftOpenEvent) error {
	shiftID := e.ShiftID
	if shiftID == "" {
		shiftID = util.GenerateTimestampWithPrefix("SH")
	}

	openedAt := e.OpenedAt
	if openedAt.IsZero() {
		openedAt = time.Now()
	}

	s := Shift{
		ID:           shiftID,
		DeviceID:     deviceID,
		CashierID:    e.CashierID,
		OpeningFloat: e.OpeningFloat,
		Status:       StatusOpen,
		OpenedAt:     openedAt,
	}

	return u.shiftRepository.Save(ctx, s, tx)
}

// ApplyCloseFromDevice implements ShiftUseCase.
func (u *shiftUseCase) ApplyCloseFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e DeviceShiftCloseEvent) error {
	s, err := u.shiftRepository.FindByID(ctx, e.ShiftID, tx)
	if err != nil {
		return err
	}

	if s.Status != StatusOpen {
		return errors.New(http.StatusConflict, status.CONFLICT, "shift is already closed")
	}

	closedAt := e.ClosedAt
	if closedAt.IsZero() {
		closedAt = time.Now()
	}

	return u.shiftRepository.Close(ctx, s.ID, e.ClosingTotal, closedAt, tx)
}
