package sale

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type SaleRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(ctx context.Context, tx *sql.Tx) error
	Rollback(ctx context.Context, tx *sql.Tx) error

	Save(ctx context.Context, s Sale, tx *sql.Tx) error
	SaveLine(ctx context.Context, l Line, tx *sql.Tx) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type saleRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewSaleRepository(logger *logrus.Logger, db *sql.DB) SaleRepository {
	return &saleRepository{
		logger: logger,
		db:     db,
	}
}

// BeginTx implements SaleRepository.
func (r *saleRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while beginning transaction")
	}

	return tx, nil
}

// CommitTx implements SaleRepository.
func (r *saleRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while committing transaction")
	}

	return nil
}

// Rollback implements SaleRepository.
func (r *saleRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	if tx == nil {
		return nil
	}

	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while rolling back transaction")
	}

	return nil
}

// Save implements SaleRepository.
func (r *saleRepository) Save(ctx context.Context, s Sale, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO sale
		(
			id, device_id, shift_id, cashier_id, subtotal, total, created_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving sale's properties")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, s.ID, s.DeviceID, s.ShiftID, s.CashierID, s.Subtotal, s.Total, s.CreatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving sale's properties")
	}

	return nil
}

// SaveLine implements SaleRepository.
func (r *saleRepository) SaveLine(ctx context.Context, l Line, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO sale_line
		(
			sale_id, package_id, quantity, unit_price
		)
		VALUES
		(
			$1, $2, $3, $4
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving sale line's properties")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, l.SaleID, l.PackageID, l.Quantity, l.UnitPrice)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving sale line's properties")
	}

	return nil
}
