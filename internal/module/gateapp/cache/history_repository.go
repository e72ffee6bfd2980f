package cache

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

// LocalHistoryRepository records the gate's own advisory decisions and
// answers the history questions the decision rules ask about them.
type LocalHistoryRepository interface {
	Save(ctx context.Context, rec LocalRedemption) error
	CountPasses(ctx context.Context, ticketID string) (int64, error)
	FindLastPassAt(ctx context.Context, ticketID string) (*time.Time, error)
	FindFirstPassAt(ctx context.Context, ticketID string) (*time.Time, error)
}

type localHistoryRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewLocalHistoryRepository(logger *logrus.Logger, db *sql.DB) LocalHistoryRepository {
	return &localHistoryRepository{
		logger: logger,
		db:     db,
	}
}

// Save implements LocalHistoryRepository.
func (r *localHistoryRepository) Save(ctx context.Context, rec LocalRedemption) error {
	query := `
		INSERT INTO local_redemption
		(
			op_id, ticket_id, outcome, fail_reason, scanned_at
		)
		VALUES
		(
			?, ?, ?, ?, ?
		)
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving local redemption")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, rec.OpID, rec.TicketID, rec.Outcome, rec.FailReason, rec.ScannedAt.Unix())
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving local redemption")
	}

	return nil
}

// CountPasses implements LocalHistoryRepository.
func (r *localHistoryRepository) CountPasses(ctx context.Context, ticketID string) (int64, error) {
	query := `
		SELECT COUNT(1)
		FROM local_redemption
		WHERE
			ticket_id = ?
			AND outcome = ?
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting local redemptions")
	}
	defer stmt.Close()

	var count int64
	if err := stmt.QueryRowContext(ctx, ticketID, OutcomePass).Scan(&count); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting local redemptions")
	}

	return count, nil
}

func (r *localHistoryRepository) findPassBoundary(ctx context.Context, ticketID, order string) (*time.Time, error) {
	query := `
		SELECT scanned_at
		FROM local_redemption
		WHERE
			ticket_id = ?
			AND outcome = ?
		ORDER BY scanned_at ` + order + `
		LIMIT 1
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting local redemption history")
	}
	defer stmt.Close()

	var scannedAt int64
	err = stmt.QueryRowContext(ctx, ticketID, OutcomePass).Scan(&scannedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting local redemption history")
	}

	at := time.Unix(scannedAt, 0)

	return &at, nil
}

// FindLastPassAt implements LocalHistoryRepository.
func (r *localHistoryRepository) FindLastPassAt(ctx context.Context, ticketID string) (*time.Time, error) {
	return r.findPassBoundary(ctx, ticketID, "DESC")
}

// FindFirstPassAt implements LocalHistoryRepository.
func (r *localHistoryRepository) FindFirstPassAt(ctx context.Context, ticketID string) (*time.Time, error) {
	return r.findPassBoundary(ctx, ticketID, "ASC")
}
