package cache

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

// GateConfigRepository is the keyed storage for the operating policy
// pushed down at bootstrap.
type GateConfigRepository interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	// IsStale reports whether the last bootstrap is older than the cache
	// TTL. A device with no bootstrap at all is stale.
	IsStale(ctx context.Context, ttl time.Duration) bool
}

type gateConfigRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewGateConfigRepository(logger *logrus.Logger, db *sql.DB) GateConfigRepository {
	return &gateConfigRepository{
		logger: logger,
		db:     db,
	}
}

// Set implements GateConfigRepository.
func (r *gateConfigRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO gate_config (key, value)
		VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving gate config")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, key, value)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving gate config")
	}

	return nil
}

// Get implements GateConfigRepository.
func (r *gateConfigRepository) Get(ctx context.Context, key string) (string, error) {
	query := `
		SELECT value
		FROM gate_config
		WHERE key = ?
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return "", errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting gate config")
	}
	defer stmt.Close()

	var value string
	err = stmt.QueryRowContext(ctx, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", errors.New(http.StatusNotFound, status.NOT_FOUND, "gate config was not found")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return "", errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting gate config")
	}

	return value, nil
}

// IsStale implements GateConfigRepository.
func (r *gateConfigRepository) IsStale(ctx context.Context, ttl time.Duration) bool {
	value, err := r.Get(ctx, ConfigKeyBootstrapFetchedAt)
	if err != nil {
		return true
	}

	fetchedAt, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return true
	}

	return time.Since(time.Unix(fetchedAt, 0)) > ttl
}
