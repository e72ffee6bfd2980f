package ticket

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type TicketRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(ctx context.Context, tx *sql.Tx) error
	Rollback(ctx context.Context, tx *sql.Tx) error

	Save(ctx context.Context, t ticketing.Ticket, tx *sql.Tx) error
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (ticketing.Ticket, error)
	FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (ticketing.Ticket, error)
	UpdateUsage(ctx context.Context, ID string, used int64, ticketStatus ticketing.TicketStatus, tx *sql.Tx) error
	FindManyActiveIssuedBetween(ctx context.Context, from, to time.Time, tx *sql.Tx) ([]ticketing.Ticket, error)
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type ticketRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewTicketRepository(logger *logrus.Logger, db *sql.DB) TicketRepository {
	return &ticketRepository{
		logger: logger,
		db:     db,
	}
}

// BeginTx implements TicketRepository.
func (r *ticketRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while beginning transaction")
	}

	return tx, nil
}

// CommitTx implements TicketRepository.
func (r *ticketRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while committing transaction")
	}

	return nil
}

// Rollback implements TicketRepository.
func (r *ticketRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	if tx == nil {
		return nil
	}

	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while rolling back transaction")
	}

	return nil
}

const ticketColumns = `
	id, short_code, token, signature, key_version, type, quota_or_minutes,
	valid_from, valid_to, lot_id, shift_id, price, issued_at, used, status,
	bound_device_ids, created_at, updated_at
`

// Save implements TicketRepository.
func (r *ticketRepository) Save(ctx context.Context, t ticketing.Ticket, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO ticket
		(` + ticketColumns + `)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving ticket's properties")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		t.ID, t.ShortCode, t.Token, t.Signature, t.KeyVersion, t.Type, t.QuotaOrMinutes,
		t.ValidFrom, t.ValidTo, t.LotID, t.ShiftID, t.Price, t.IssuedAt, t.Used, t.Status,
		pq.Array(t.BoundDeviceIDs), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving ticket's properties")
	}

	return nil
}

func (r *ticketRepository) findByID(ctx context.Context, ID string, forUpdate bool, tx *sql.Tx) (ticketing.Ticket, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT ` + ticketColumns + `
		FROM ticket
		WHERE
			id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return ticketing.Ticket{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting ticket's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	t, err := scanTicket(row.Scan)
	if err == sql.ErrNoRows {
		return ticketing.Ticket{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "ticket was not found")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return ticketing.Ticket{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting ticket's properties")
	}

	return t, nil
}

// FindByID implements TicketRepository.
func (r *ticketRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (ticketing.Ticket, error) {
	return r.findByID(ctx, ID, false, tx)
}

// FindByIDForUpdate implements TicketRepository. The row lock it takes
// is what serializes concurrent redemptions of the same ticket.
func (r *ticketRepository) FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (ticketing.Ticket, error) {
	return r.findByID(ctx, ID, true, tx)
}

// UpdateUsage implements TicketRepository.
func (r *ticketRepository) UpdateUsage(ctx context.Context, ID string, used int64, ticketStatus ticketing.TicketStatus, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE ticket
		SET
			used = $1,
			status = $2,
			updated_at = $3
		WHERE
			id = $4
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating ticket's usage")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, used, ticketStatus, time.Now(), ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating ticket's usage")
	}

	return nil
}

// FindManyActiveIssuedBetween implements TicketRepository.
func (r *ticketRepository) FindManyActiveIssuedBetween(ctx context.Context, from, to time.Time, tx *sql.Tx) ([]ticketing.Ticket, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT ` + ticketColumns + `
		FROM ticket
		WHERE
			status = $1
			AND issued_at >= $2
			AND issued_at <= $3
		ORDER BY issued_at ASC
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of ticket's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, ticketing.TicketStatusActive, from, to)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of ticket's properties")
	}

	defer rows.Close()

	var data = make([]ticketing.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows.Scan)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of ticket's properties")
		}

		data = append(data, t)
	}

	return data, nil
}

func scanTicket(scan func(dest ...interface{}) error) (ticketing.Ticket, error) {
	var t ticketing.Ticket
	var boundDeviceIDs pq.StringArray

	err := scan(
		&t.ID, &t.ShortCode, &t.Token, &t.Signature, &t.KeyVersion, &t.Type, &t.QuotaOrMinutes,
		&t.ValidFrom, &t.ValidTo, &t.LotID, &t.ShiftID, &t.Price, &t.IssuedAt, &t.Used, &t.Status,
		&boundDeviceIDs, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return ticketing.Ticket{}, err
	}

	t.BoundDeviceIDs = boundDeviceIDs

	return t, nil
}
