package shift

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type ShiftRepository interface {
	Save(ctx context.Context, s Shift, tx *sql.Tx) error
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (Shift, error)
	Close(ctx context.Context, ID string, closingTotal float64, closedAt time.Time, tx *sql.Tx) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type shiftRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewShiftRepository(logger *logrus.Logger, db *sql.DB) ShiftRepository {
	return &shiftRepository{
		logger: logger,
		db:     db,
	}
}

// Save implements ShiftRepository.
func (r *shiftRepository) Save(ctx context.Context, s Shift, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO shift
		(
			id, device_id, cashier_id, opening_float, status, opened_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving shift's properties")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, s.ID, s.DeviceID, s.CashierID, s.OpeningFloat, s.Status, s.OpenedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving shift's properties")
	}

	return nil
}

// FindByID implements ShiftRepository.
func (r *shiftRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (Shift, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, device_id, cashier_id, opening_float, closing_total, status, opened_at, closed_at
		FROM shift
		WHERE
			id = $1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Shift{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting shift's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	var data Shift
	var closingTotal sql.NullFloat64
	var closedAt sql.NullTime

	err = row.Scan(&data.ID, &data.DeviceID, &data.CashierID, &data.OpeningFloat, &closingTotal, &data.Status, &data.OpenedAt, &closedAt)
	if err == sql.ErrNoRows {
		return Shift{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "shift was not found")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Shift{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting shift's properties")
	}

	if closingTotal.Valid {
		data.ClosingTotal = &closingTotal.Float64
	}
	if closedAt.Valid {
		data.ClosedAt = &closedAt.Time
	}

	return data, nil
}

// Close implements ShiftRepository.
func (r *shiftRepository) Close(ctx context.Context, ID string, closingTotal float64, closedAt time.Time, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE shift
		SET
			closing_total = $1,
			closed_at = $2,
			status = $3
		WHERE
			id = $4
			AND status = $5
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while closing shift")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, closingTotal, closedAt, StatusClosed, ID, StatusOpen)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while closing shift")
	}

	return nil
}
