package redemption

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type RedemptionRepository interface {
	Save(ctx context.Context, rdm Redemption, tx *sql.Tx) error
	FindLastPassAt(ctx context.Context, ticketID string, tx *sql.Tx) (*time.Time, error)
	FindFirstPassAt(ctx context.Context, ticketID string, tx *sql.Tx) (*time.Time, error)
	FindManyByTicketID(ctx context.Context, ticketID string, tx *sql.Tx) ([]Redemption, error)
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type redemptionRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewRedemptionRepository(logger *logrus.Logger, db *sql.DB) RedemptionRepository {
	return &redemptionRepository{
		logger: logger,
		db:     db,
	}
}

// Save implements RedemptionRepository.
func (r *redemptionRepository) Save(ctx context.Context, rdm Redemption, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO redemption
		(
			id, ticket_id, device_id, scanned_at, outcome, fail_reason, remaining, provisional, downgraded, created_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving redemption's properties")
	}
	defer stmt.Close()

	var failReason sql.NullString
	if rdm.FailReason != nil {
		failReason.Valid = true
		failReason.String = string(*rdm.FailReason)
	}

	var remaining sql.NullInt64
	if rdm.Remaining != nil {
		remaining.Valid = true
		remaining.Int64 = *rdm.Remaining
	}

	_, err = stmt.ExecContext(ctx,
		rdm.ID, rdm.TicketID, rdm.DeviceID, rdm.ScannedAt, rdm.Outcome, failReason, remaining, rdm.Provisional, rdm.Downgraded, rdm.CreatedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving redemption's properties")
	}

	return nil
}

func (r *redemptionRepository) findPassBoundary(ctx context.Context, ticketID string, order string, tx *sql.Tx) (*time.Time, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT scanned_at
		FROM redemption
		WHERE
			ticket_id = $1
			AND outcome = $2
		ORDER BY scanned_at ` + order + `
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting redemption's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ticketID, OutcomePass)

	var scannedAt time.Time
	err = row.Scan(&scannedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting redemption's properties")
	}

	return &scannedAt, nil
}

// FindLastPassAt implements RedemptionRepository.
func (r *redemptionRepository) FindLastPassAt(ctx context.Context, ticketID string, tx *sql.Tx) (*time.Time, error) {
	return r.findPassBoundary(ctx, ticketID, "DESC", tx)
}

// FindFirstPassAt implements RedemptionRepository.
func (r *redemptionRepository) FindFirstPassAt(ctx context.Context, ticketID string, tx *sql.Tx) (*time.Time, error) {
	return r.findPassBoundary(ctx, ticketID, "ASC", tx)
}

// FindManyByTicketID implements RedemptionRepository.
func (r *redemptionRepository) FindManyByTicketID(ctx context.Context, ticketID string, tx *sql.Tx) ([]Redemption, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, ticket_id, device_id, scanned_at, outcome, fail_reason, remaining, provisional, downgraded, created_at
		FROM redemption
		WHERE
			ticket_id = $1
		ORDER BY scanned_at ASC
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of redemption's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, ticketID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of redemption's properties")
	}

	defer rows.Close()

	var data = make([]Redemption, 0)
	for rows.Next() {
		var rdm Redemption
		var failReason sql.NullString
		var remaining sql.NullInt64

		err := rows.Scan(&rdm.ID, &rdm.TicketID, &rdm.DeviceID, &rdm.ScannedAt, &rdm.Outcome, &failReason, &remaining, &rdm.Provisional, &rdm.Downgraded, &rdm.CreatedAt)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of redemption's properties")
		}

		if failReason.Valid {
			reason := ticketing.FailReason(failReason.String)
			rdm.FailReason = &reason
		}
		if remaining.Valid {
			rdm.Remaining = &remaining.Int64
		}

		data = append(data, rdm)
	}

	return data, nil
}
