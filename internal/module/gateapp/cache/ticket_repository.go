package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

// TicketCacheRepository holds the bootstrap snapshot of tickets the
// gate adjudicates against while offline.
type TicketCacheRepository interface {
	ReplaceAll(ctx context.Context, tickets []ticketing.Ticket) error
	FindByID(ctx context.Context, ID string) (ticketing.Ticket, error)
	UpdateUsage(ctx context.Context, ID string, used int64, ticketStatus ticketing.TicketStatus) error
}

type ticketCacheRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewTicketCacheRepository(logger *logrus.Logger, db *sql.DB) TicketCacheRepository {
	return &ticketCacheRepository{
		logger: logger,
		db:     db,
	}
}

// ReplaceAll implements TicketCacheRepository. A fresh bootstrap
// supersedes the previous snapshot and the advisory history recorded
// against it.
func (r *ticketCacheRepository) ReplaceAll(ctx context.Context, tickets []ticketing.Ticket) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while replacing ticket cache")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_cache`); err != nil {
		tx.Rollback()
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while replacing ticket cache")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM local_redemption`); err != nil {
		tx.Rollback()
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while replacing ticket cache")
	}

	query := `
		INSERT INTO ticket_cache
		(
			id, short_code, token, signature, key_version, type, quota_or_minutes,
			valid_from, valid_to, lot_id, used, status, bound_device_ids
		)
		VALUES
		(
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while replacing ticket cache")
	}
	defer stmt.Close()

	for _, t := range tickets {
		boundBuff, _ := json.Marshal(t.BoundDeviceIDs)

		_, err := stmt.ExecContext(ctx,
			t.ID, t.ShortCode, t.Token, t.Signature, t.KeyVersion, t.Type, t.QuotaOrMinutes,
			t.ValidFrom.Unix(), t.ValidTo.Unix(), t.LotID, t.Used, t.Status, string(boundBuff),
		)
		if err != nil {
			tx.Rollback()
			r.logger.WithContext(ctx).WithError(err).Error()
			return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while replacing ticket cache")
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while replacing ticket cache")
	}

	return nil
}

// FindByID implements TicketCacheRepository.
func (r *ticketCacheRepository) FindByID(ctx context.Context, ID string) (ticketing.Ticket, error) {
	query := `
		SELECT
			id, short_code, token, signature, key_version, type, quota_or_minutes,
			valid_from, valid_to, lot_id, used, status, bound_device_ids
		FROM ticket_cache
		WHERE
			id = ?
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return ticketing.Ticket{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting cached ticket")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	var t ticketing.Ticket
	var validFrom, validTo int64
	var bound string

	err = row.Scan(
		&t.ID, &t.ShortCode, &t.Token, &t.Signature, &t.KeyVersion, &t.Type, &t.QuotaOrMinutes,
		&validFrom, &validTo, &t.LotID, &t.Used, &t.Status, &bound,
	)
	if err == sql.ErrNoRows {
		return ticketing.Ticket{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "ticket was not found on the cache")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return ticketing.Ticket{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting cached ticket")
	}

	t.ValidFrom = time.Unix(validFrom, 0)
	t.ValidTo = time.Unix(validTo, 0)
	json.Unmarshal([]byte(bound), &t.BoundDeviceIDs)

	return t, nil
}

// UpdateUsage implements TicketCacheRepository.
func (r *ticketCacheRepository) UpdateUsage(ctx context.Context, ID string, used int64, ticketStatus ticketing.TicketStatus) error {
	query := `
		UPDATE ticket_cache
		SET
			used = ?,
			status = ?
		WHERE
			id = ?
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating cached ticket's usage")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, used, ticketStatus, ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating cached ticket's usage")
	}

	return nil
}
