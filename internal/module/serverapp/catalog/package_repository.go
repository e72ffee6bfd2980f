package catalog

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type PackageRepository interface {
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (Package, error)
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type packageRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewPackageRepository(logger *logrus.Logger, db *sql.DB) PackageRepository {
	return &packageRepository{
		logger: logger,
		db:     db,
	}
}

// FindByID implements PackageRepository.
func (r *packageRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (Package, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, name, type, price, quota_or_minutes, validity_minutes, active, updated_at
		FROM package
		WHERE
			id = $1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Package{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting package's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	var data Package
	var validityMinutes sql.NullInt64

	err = row.Scan(&data.ID, &data.Name, &data.Type, &data.Price, &data.QuotaOrMinutes, &validityMinutes, &data.Active, &data.UpdatedAt)
	if err == sql.ErrNoRows {
		return Package{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "package was not found")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Package{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting package's properties")
	}

	if validityMinutes.Valid {
		data.ValidityMinutes = &validityMinutes.Int64
	}

	return data, nil
}
