package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/redemption"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/sale"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/shift"
	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/session"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

type fakeLedgerRepository struct {
	applied map[string]bool
	staged  *LedgerEntry
	commits int
}

func newFakeLedgerRepository() *fakeLedgerRepository {
	return &fakeLedgerRepository{applied: map[string]bool{}}
}

func (f *fakeLedgerRepository) key(deviceID, opID string) string {
	return fmt.Sprintf("%s:%s", deviceID, opID)
}

func (f *fakeLedgerRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	f.staged = nil
	return nil, nil
}

func (f *fakeLedgerRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if f.staged != nil {
		f.applied[f.key(f.staged.DeviceID, f.staged.OpID)] = true
		f.staged = nil
	}
	f.commits++

	return nil
}

func (f *fakeLedgerRepository) Rollback(ctx context.Context, tx *sql.Tx) {
	f.staged = nil
}

func (f *fakeLedgerRepository) Exists(ctx context.Context, deviceID, opID string, tx *sql.Tx) (bool, error) {
	return f.applied[f.key(deviceID, opID)], nil
}

func (f *fakeLedgerRepository) Save(ctx context.Context, entry LedgerEntry, tx *sql.Tx) error {
	f.staged = &entry
	return nil
}

type fakeRedemptionUseCase struct {
	applies int
}

func (f *fakeRedemptionUseCase) Redeem(ctx context.Context, req redemption.RedeemRequest) (redemption.RedeemResponse, error) {
	return redemption.RedeemResponse{}, nil
}

func (f *fakeRedemptionUseCase) ApplyFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e redemption.DeviceRedemptionEvent) (redemption.DeviceRedemptionResult, error) {
	f.applies++
	remaining := int64(0)

	return redemption.DeviceRedemptionResult{TicketID: "TK-1", Result: redemption.OutcomePass, Remaining: &remaining}, nil
}

type fakeSaleUseCase struct {
	applies int
}

func (f *fakeSaleUseCase) PlaceSale(ctx context.Context, req sale.PlaceSaleRequest) (sale.PlaceSaleResponse, error) {
	return sale.PlaceSaleResponse{}, nil
}

func (f *fakeSaleUseCase) ApplyFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e sale.DeviceSaleEvent) (sale.PlaceSaleResponse, error) {
	f.applies++
	return sale.PlaceSaleResponse{}, nil
}

type fakeShiftUseCase struct {
	opens  int
	closes int
}

func (f *fakeShiftUseCase) Open(ctx context.Context, req shift.OpenShiftRequest) (shift.ShiftResponse, error) {
	return shift.ShiftResponse{}, nil
}

func (f *fakeShiftUseCase) Close(ctx context.Context, req shift.CloseShiftRequest) (shift.ShiftResponse, error) {
	return shift.ShiftResponse{}, nil
}

func (f *fakeShiftUseCase) ApplyOpenFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e shift.DeviceShiftOpenEvent) error {
	f.opens++
	return nil
}

func (f *fakeShiftUseCase) ApplyCloseFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e shift.DeviceShiftCloseEvent) error {
	f.closes++
	return nil
}

func deviceCtx(deviceID string) context.Context {
	return session.ContextWithAccount(context.Background(), session.DeviceAccount{
		DeviceID: deviceID,
		Active:   true,
	})
}

func redemptionOp(opID string) Operation {
	payload, _ := json.Marshal(redemption.DeviceRedemptionEvent{
		Credential:     "ZmFrZQ",
		ScannedAt:      time.Now(),
		AdvisoryResult: redemption.OutcomePass,
	})

	return Operation{OpID: opID, Type: OpTypeRedemption, Payload: payload, QueuedAt: time.Now()}
}

func newTestUseCase(ledger *fakeLedgerRepository, rdm *fakeRedemptionUseCase, sl *fakeSaleUseCase, sh *fakeShiftUseCase) SyncUseCase {
	return NewSyncUseCase(SyncUseCaseProperty{
		Logger:            testLogger(),
		Timeout:           5 * time.Second,
		LedgerRepository:  ledger,
		SaleUseCase:       sl,
		RedemptionUseCase: rdm,
		ShiftUseCase:      sh,
	})
}

func TestSyncUseCase_ProcessBatch_RetriedBatchAppliesOnce(t *testing.T) {
	ledger := newFakeLedgerRepository()
	rdm := &fakeRedemptionUseCase{}

	u := newTestUseCase(ledger, rdm, &fakeSaleUseCase{}, &fakeShiftUseCase{})

	req := ProcessBatchRequest{Operations: []Operation{
		redemptionOp("op-1"),
		redemptionOp("op-2"),
		redemptionOp("op-3"),
	}}

	resp, err := u.ProcessBatch(deviceCtx("GATE-01"), req)
	assert.NoError(t, err)
	assert.Len(t, resp.Results, 3)
	for _, r := range resp.Results {
		assert.Equal(t, OpStatusSuccess, r.Status)
		assert.NotNil(t, r.Redemption)
	}
	assert.Equal(t, int64(3), resp.Processed)
	assert.Equal(t, int64(3), resp.Successful)
	assert.Equal(t, int64(0), resp.Failed)

	// The device lost the acknowledgement and retries the same batch.
	resp, err = u.ProcessBatch(deviceCtx("GATE-01"), req)
	assert.NoError(t, err)
	for _, r := range resp.Results {
		assert.Equal(t, OpStatusAlreadySynced, r.Status)
	}

	assert.Equal(t, 3, rdm.applies, "effects must be applied exactly once per operation")
	assert.Equal(t, 3, ledger.commits)
}

func TestSyncUseCase_ProcessBatch_MixedOperations(t *testing.T) {
	ledger := newFakeLedgerRepository()
	sl := &fakeSaleUseCase{}
	sh := &fakeShiftUseCase{}

	u := newTestUseCase(ledger, &fakeRedemptionUseCase{}, sl, sh)

	openPayload, _ := json.Marshal(shift.DeviceShiftOpenEvent{ShiftID: "SH-1", CashierID: "CA-1", OpenedAt: time.Now()})
	salePayload, _ := json.Marshal(sale.DeviceSaleEvent{ShiftID: "SH-1", Lines: []sale.LineRequest{{PackageID: "PKG-1", Quantity: 1}}, SoldAt: time.Now()})
	closePayload, _ := json.Marshal(shift.DeviceShiftCloseEvent{ShiftID: "SH-1", ClosingTotal: 100, ClosedAt: time.Now()})

	req := ProcessBatchRequest{Operations: []Operation{
		{OpID: "op-1", Type: OpTypeShiftOpen, Payload: openPayload},
		{OpID: "op-2", Type: OpTypeSale, Payload: salePayload},
		{OpID: "op-3", Type: OpTypeShiftClose, Payload: closePayload},
	}}

	resp, err := u.ProcessBatch(deviceCtx("GATE-01"), req)
	assert.NoError(t, err)
	for _, r := range resp.Results {
		assert.Equal(t, OpStatusSuccess, r.Status)
	}

	assert.Equal(t, 1, sh.opens)
	assert.Equal(t, 1, sl.applies)
	assert.Equal(t, 1, sh.closes)
}

func TestSyncUseCase_ProcessBatch_UnknownTypeFailsWithoutLedgerEntry(t *testing.T) {
	ledger := newFakeLedgerRepository()

	u := newTestUseCase(ledger, &fakeRedemptionUseCase{}, &fakeSaleUseCase{}, &fakeShiftUseCase{})

	req := ProcessBatchRequest{Operations: []Operation{
		{OpID: "op-1", Type: "cash_drop", Payload: json.RawMessage(`{}`)},
	}}

	resp, err := u.ProcessBatch(deviceCtx("GATE-01"), req)
	assert.NoError(t, err)
	assert.Equal(t, OpStatusFailed, resp.Results[0].Status)
	assert.Equal(t, int64(1), resp.Failed)
	assert.Equal(t, 0, ledger.commits)

	// A failed operation is retryable: it must not be marked as synced.
	resp, err = u.ProcessBatch(deviceCtx("GATE-01"), req)
	assert.NoError(t, err)
	assert.Equal(t, OpStatusFailed, resp.Results[0].Status)
}

func TestSyncUseCase_ProcessBatch_MalformedPayloadFails(t *testing.T) {
	ledger := newFakeLedgerRepository()

	u := newTestUseCase(ledger, &fakeRedemptionUseCase{}, &fakeSaleUseCase{}, &fakeShiftUseCase{})

	req := ProcessBatchRequest{Operations: []Operation{
		{OpID: "op-1", Type: OpTypeRedemption, Payload: json.RawMessage(`not-json`)},
	}}

	resp, err := u.ProcessBatch(deviceCtx("GATE-01"), req)
	assert.NoError(t, err)
	assert.Equal(t, OpStatusFailed, resp.Results[0].Status)
	assert.Equal(t, "malformed redemption payload", resp.Results[0].Reason)
}

func TestSyncUseCase_ProcessBatch_RequiresDeviceSession(t *testing.T) {
	u := newTestUseCase(newFakeLedgerRepository(), &fakeRedemptionUseCase{}, &fakeSaleUseCase{}, &fakeShiftUseCase{})

	_, err := u.ProcessBatch(context.Background(), ProcessBatchRequest{Operations: []Operation{redemptionOp("op-1")}})
	assert.Error(t, err)
}
