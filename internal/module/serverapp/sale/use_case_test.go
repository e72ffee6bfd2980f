package sale

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/catalog"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/ticket"
	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing/sign"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

type fakePackageRepository struct {
	packages map[string]catalog.Package
}

func (f *fakePackageRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (catalog.Package, error) {
	return f.packages[ID], nil
}

type fakeSaleRepository struct {
	sales     []Sale
	lines     []Line
	commits   int
	rollbacks int
}

func (f *fakeSaleRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return nil, nil
}

func (f *fakeSaleRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	f.commits++
	return nil
}

func (f *fakeSaleRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	f.rollbacks++
	return nil
}

func (f *fakeSaleRepository) Save(ctx context.Context, s Sale, tx *sql.Tx) error {
	f.sales = append(f.sales, s)
	return nil
}

func (f *fakeSaleRepository) SaveLine(ctx context.Context, l Line, tx *sql.Tx) error {
	f.lines = append(f.lines, l)
	return nil
}

type fakeTicketRepository struct {
	tickets []ticketing.Ticket
}

func (f *fakeTicketRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return nil, nil
}

func (f *fakeTicketRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	return nil
}

func (f *fakeTicketRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	return nil
}

func (f *fakeTicketRepository) Save(ctx context.Context, t ticketing.Ticket, tx *sql.Tx) error {
	f.tickets = append(f.tickets, t)
	return nil
}

func (f *fakeTicketRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (ticketing.Ticket, error) {
	return ticketing.Ticket{}, nil
}

func (f *fakeTicketRepository) FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (ticketing.Ticket, error) {
	return ticketing.Ticket{}, nil
}

func (f *fakeTicketRepository) UpdateUsage(ctx context.Context, ID string, used int64, ticketStatus ticketing.TicketStatus, tx *sql.Tx) error {
	return nil
}

func (f *fakeTicketRepository) FindManyActiveIssuedBetween(ctx context.Context, from, to time.Time, tx *sql.Tx) ([]ticketing.Ticket, error) {
	return nil, nil
}

type fakePublisher struct {
	topics []string
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, key string, headers map[string]string, message []byte) error {
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakePublisher) Close() {}

type saleFixture struct {
	saleRepo   *fakeSaleRepository
	ticketRepo *fakeTicketRepository
	publisher  *fakePublisher
	useCase    SaleUseCase
}

func newSaleFixture(packages map[string]catalog.Package) *saleFixture {
	f := &saleFixture{
		saleRepo:   &fakeSaleRepository{},
		ticketRepo: &fakeTicketRepository{},
		publisher:  &fakePublisher{},
	}

	keyring := sign.NewKeyring(map[string]string{"v1": "sale-test-secret"})

	f.useCase = NewSaleUseCase(SaleUseCaseProperty{
		Logger:            testLogger(),
		Timeout:           5 * time.Second,
		Issuer:            ticket.NewIssuer(keyring, "v1"),
		PackageRepository: &fakePackageRepository{packages: packages},
		SaleRepository:    f.saleRepo,
		TicketRepository:  f.ticketRepo,
		Publisher:         f.publisher,
	})

	return f
}

func deviceCtx(deviceID string) context.Context {
	return session.ContextWithAccount(context.Background(), session.DeviceAccount{
		DeviceID: deviceID,
		Active:   true,
	})
}

func TestSaleUseCase_PlaceSale_MintsSignedTickets(t *testing.T) {
	f := newSaleFixture(map[string]catalog.Package{
		"PKG-1": {ID: "PKG-1", Name: "Day Pass", Type: ticketing.TicketTypeSingle, Price: 50, QuotaOrMinutes: 1, Active: true},
	})

	resp, err := f.useCase.PlaceSale(deviceCtx("POS-01"), PlaceSaleRequest{
		ShiftID:   "SH-1",
		CashierID: "CA-1",
		Lines:     []LineRequest{{PackageID: "PKG-1", Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, "POS-01", resp.DeviceID)
	assert.Equal(t, float64(150), resp.Total)
	require.Len(t, resp.Tickets, 3)

	require.Len(t, f.ticketRepo.tickets, 3)
	for _, minted := range f.ticketRepo.tickets {
		assert.NotEmpty(t, minted.Signature, "a sale must never commit with an unsigned ticket")
		assert.Equal(t, "v1", minted.KeyVersion)
		assert.Equal(t, resp.ID, minted.LotID)
	}

	assert.Equal(t, 1, f.saleRepo.commits)
	assert.Len(t, f.saleRepo.lines, 1)
	assert.Equal(t, []string{"ticket-issued"}, f.publisher.topics)
}

func TestSaleUseCase_PlaceSale_InactivePackageRollsBack(t *testing.T) {
	f := newSaleFixture(map[string]catalog.Package{
		"PKG-9": {ID: "PKG-9", Name: "Retired", Type: ticketing.TicketTypeSingle, Price: 10, QuotaOrMinutes: 1, Active: false},
	})

	_, err := f.useCase.PlaceSale(deviceCtx("POS-01"), PlaceSaleRequest{
		ShiftID:   "SH-1",
		CashierID: "CA-1",
		Lines:     []LineRequest{{PackageID: "PKG-9", Quantity: 1}},
	})
	require.Error(t, err)

	assert.Equal(t, 1, f.saleRepo.rollbacks)
	assert.Empty(t, f.saleRepo.sales)
	assert.Empty(t, f.ticketRepo.tickets)
	assert.Empty(t, f.publisher.topics)
}

func TestSaleUseCase_ApplyFromDevice_KeepsOfflineTimestamp(t *testing.T) {
	f := newSaleFixture(map[string]catalog.Package{
		"PKG-1": {ID: "PKG-1", Name: "Day Pass", Type: ticketing.TicketTypeSingle, Price: 50, QuotaOrMinutes: 1, Active: true},
	})

	soldAt := time.Now().Add(-2 * time.Hour)

	resp, err := f.useCase.ApplyFromDevice(context.Background(), nil, "GATE-01", DeviceSaleEvent{
		ShiftID:   "SH-1",
		CashierID: "CA-1",
		Lines:     []LineRequest{{PackageID: "PKG-1", Quantity: 1}},
		SoldAt:    soldAt,
	})
	require.NoError(t, err)

	assert.Equal(t, "GATE-01", resp.DeviceID)
	assert.Equal(t, soldAt, resp.CreatedAt)
	// The sync coordinator owns the transaction when replaying.
	assert.Equal(t, 0, f.saleRepo.commits)
}

func TestSaleUseCase_PlaceSale_RequiresDeviceSession(t *testing.T) {
	f := newSaleFixture(nil)

	_, err := f.useCase.PlaceSale(context.Background(), PlaceSaleRequest{
		ShiftID:   "SH-1",
		CashierID: "CA-1",
		Lines:     []LineRequest{{PackageID: "PKG-1", Quantity: 1}},
	})
	assert.Error(t, err)
}
