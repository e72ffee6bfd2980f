package sync

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

// LedgerRepository persists the per-device idempotency ledger. Exists
// and Save must run inside the same transaction as the operation's
// effects so a replayed op can never half-apply.
type LedgerRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(ctx context.Context, tx *sql.Tx) error
	Rollback(ctx context.Context, tx *sql.Tx)
	Exists(ctx context.Context, deviceID, opID string, tx *sql.Tx) (bool, error)
	Save(ctx context.Context, entry LedgerEntry, tx *sql.Tx) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type ledgerRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewLedgerRepository(logger *logrus.Logger, db *sql.DB) LedgerRepository {
	return &ledgerRepository{
		logger: logger,
		db:     db,
	}
}

// BeginTx implements LedgerRepository.
func (r *ledgerRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while starting sync transaction")
	}

	return tx, nil
}

// CommitTx implements LedgerRepository.
func (r *ledgerRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while committing sync transaction")
	}

	return nil
}

// Rollback implements LedgerRepository.
func (r *ledgerRepository) Rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
	}
}

// Exists implements LedgerRepository.
func (r *ledgerRepository) Exists(ctx context.Context, deviceID, opID string, tx *sql.Tx) (bool, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			1
		FROM sync_ledger
		WHERE
			device_id = $1
			AND op_id = $2
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while checking sync ledger")
	}
	defer stmt.Close()

	var one int
	err = stmt.QueryRowContext(ctx, deviceID, opID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while checking sync ledger")
	}

	return true, nil
}

// Save implements LedgerRepository.
func (r *ledgerRepository) Save(ctx context.Context, entry LedgerEntry, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO sync_ledger
		(
			device_id, op_id, op_type, applied_at
		)
		VALUES
		(
			$1, $2, $3, $4
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving sync ledger entry")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, entry.DeviceID, entry.OpID, entry.OpType, entry.AppliedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving sync ledger entry")
	}

	return nil
}
