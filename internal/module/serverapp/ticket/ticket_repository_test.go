package ticket

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
)

func repositoryLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

var ticketColumnList = []string{
	"id", "short_code", "token", "signature", "key_version", "type", "quota_or_minutes",
	"valid_from", "valid_to", "lot_id", "shift_id", "price", "issued_at", "used", "status",
	"bound_device_ids", "created_at", "updated_at",
}

func ticketRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(ticketColumnList).AddRow(
		"TK-1", "ABCD2345", "token-1", "sig", "v1", "single", int64(1),
		now.Add(-time.Hour), now.Add(time.Hour), "SL-1", "SH-1", 50.0, now, int64(0), "active",
		[]byte("{}"), now, now,
	)
}

func TestTicketRepository_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("INSERT INTO ticket").
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewTicketRepository(repositoryLogger(), db)

	now := time.Now()
	err = repo.Save(context.Background(), ticketing.Ticket{
		ID:         "TK-1",
		ShortCode:  "ABCD2345",
		Token:      "token-1",
		Signature:  "sig",
		KeyVersion: "v1",
		Type:       ticketing.TicketTypeSingle,
		Status:     ticketing.TicketStatusActive,
		IssuedAt:   now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_FindByIDForUpdateLocksRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()

	mock.ExpectPrepare("FOR UPDATE").
		ExpectQuery().
		WithArgs("TK-1").
		WillReturnRows(ticketRow(now))

	repo := NewTicketRepository(repositoryLogger(), db)

	found, err := repo.FindByIDForUpdate(context.Background(), "TK-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "TK-1", found.ID)
	assert.Equal(t, ticketing.TicketTypeSingle, found.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_FindByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("SELECT").
		ExpectQuery().
		WithArgs("TK-missing").
		WillReturnRows(sqlmock.NewRows(ticketColumnList))

	repo := NewTicketRepository(repositoryLogger(), db)

	_, err = repo.FindByID(context.Background(), "TK-missing", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, errors.Destruct(err).HTTPStatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_UpdateUsage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("UPDATE ticket").
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewTicketRepository(repositoryLogger(), db)

	err = repo.UpdateUsage(context.Background(), "TK-1", 1, ticketing.TicketStatusUsed, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_FindManyActiveIssuedBetween(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(ticketColumnList).
		AddRow(
			"TK-1", "ABCD2345", "token-1", "sig", "v1", "single", int64(1),
			now.Add(-time.Hour), now.Add(time.Hour), "SL-1", "SH-1", 50.0, now.Add(-30*time.Minute), int64(0), "active",
			[]byte("{}"), now, now,
		).
		AddRow(
			"TK-2", "EFGH6789", "token-2", "sig", "v1", "multi", int64(5),
			now.Add(-time.Hour), now.Add(time.Hour), "SL-2", "SH-1", 120.0, now.Add(-10*time.Minute), int64(2), "active",
			[]byte("{}"), now, now,
		)

	mock.ExpectPrepare("SELECT").
		ExpectQuery().
		WithArgs(string(ticketing.TicketStatusActive), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	repo := NewTicketRepository(repositoryLogger(), db)

	found, err := repo.FindManyActiveIssuedBetween(context.Background(), now.Add(-time.Hour), now, nil)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "TK-2", found[1].ID)
	assert.Equal(t, int64(2), found[1].Used)
	assert.NoError(t, mock.ExpectationsWereMet())
}
