package outbox

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type OutboxRepository interface {
	Enqueue(ctx context.Context, e Event) error
	CountPending(ctx context.Context) (int64, error)
	FindManyByStatus(ctx context.Context, eventStatus string, limit int64) ([]Event, error)
	MarkSending(ctx context.Context, opIDs []string) error
	Delete(ctx context.Context, opID string) error
	// Requeue puts an event back in line after a failed attempt.
	Requeue(ctx context.Context, opID string, lastError string) error
	// RequeueSending puts events left mid-flight by an interrupted drain
	// back in line, without charging them a retry.
	RequeueSending(ctx context.Context) (int64, error)
	// MarkFailed parks an event past its retry ceiling for the operator.
	MarkFailed(ctx context.Context, opID string, lastError string) error
	// RetryFailed moves all parked events back to the queue.
	RetryFailed(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
}

type outboxRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewOutboxRepository(logger *logrus.Logger, db *sql.DB) OutboxRepository {
	return &outboxRepository{
		logger: logger,
		db:     db,
	}
}

// Enqueue implements OutboxRepository.
func (r *outboxRepository) Enqueue(ctx context.Context, e Event) error {
	query := `
		INSERT INTO outbox
		(
			op_id, type, payload, status, retry_count, queued_at, updated_at
		)
		VALUES
		(
			?, ?, ?, ?, 0, ?, ?
		)
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while enqueueing outbox event")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, e.OpID, e.Type, string(e.Payload), StatusQueued, e.QueuedAt.Unix(), e.QueuedAt.Unix())
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while enqueueing outbox event")
	}

	return nil
}

// CountPending implements OutboxRepository.
func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(1)
		FROM outbox
		WHERE
			status IN (?, ?)
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting outbox events")
	}
	defer stmt.Close()

	var count int64
	if err := stmt.QueryRowContext(ctx, StatusQueued, StatusSending).Scan(&count); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting outbox events")
	}

	return count, nil
}

// FindManyByStatus implements OutboxRepository.
func (r *outboxRepository) FindManyByStatus(ctx context.Context, eventStatus string, limit int64) ([]Event, error) {
	query := `
		SELECT
			op_id, type, payload, status, retry_count, last_error, queued_at, updated_at
		FROM outbox
		WHERE
			status = ?
		ORDER BY queued_at ASC
		LIMIT ?
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of outbox events")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, eventStatus, limit)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of outbox events")
	}

	defer rows.Close()

	var data = make([]Event, 0)
	for rows.Next() {
		var e Event
		var payload string
		var queuedAt, updatedAt int64

		err := rows.Scan(&e.OpID, &e.Type, &payload, &e.Status, &e.RetryCount, &e.LastError, &queuedAt, &updatedAt)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of outbox events")
		}

		e.Payload = []byte(payload)
		e.QueuedAt = time.Unix(queuedAt, 0)
		e.UpdatedAt = time.Unix(updatedAt, 0)

		data = append(data, e)
	}

	return data, nil
}

// MarkSending implements OutboxRepository.
func (r *outboxRepository) MarkSending(ctx context.Context, opIDs []string) error {
	for _, opID := range opIDs {
		if err := r.setStatus(ctx, opID, StatusSending, nil); err != nil {
			return err
		}
	}

	return nil
}

// Delete implements OutboxRepository.
func (r *outboxRepository) Delete(ctx context.Context, opID string) error {
	query := `
		DELETE FROM outbox
		WHERE op_id = ?
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while deleting outbox event")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, opID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while deleting outbox event")
	}

	return nil
}

// Requeue implements OutboxRepository.
func (r *outboxRepository) Requeue(ctx context.Context, opID string, lastError string) error {
	query := `
		UPDATE outbox
		SET
			status = ?,
			retry_count = retry_count + 1,
			last_error = ?,
			updated_at = ?
		WHERE
			op_id = ?
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while requeueing outbox event")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, StatusQueued, lastError, time.Now().Unix(), opID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while requeueing outbox event")
	}

	return nil
}

// RequeueSending implements OutboxRepository.
func (r *outboxRepository) RequeueSending(ctx context.Context) (int64, error) {
	query := `
		UPDATE outbox
		SET
			status = ?,
			updated_at = ?
		WHERE
			status = ?
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while requeueing in-flight outbox events")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, StatusQueued, time.Now().Unix(), StatusSending)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while requeueing in-flight outbox events")
	}

	affected, _ := result.RowsAffected()

	return affected, nil
}

// MarkFailed implements OutboxRepository.
func (r *outboxRepository) MarkFailed(ctx context.Context, opID string, lastError string) error {
	return r.setStatus(ctx, opID, StatusFailed, &lastError)
}

// RetryFailed implements OutboxRepository.
func (r *outboxRepository) RetryFailed(ctx context.Context) (int64, error) {
	query := `
		UPDATE outbox
		SET
			status = ?,
			retry_count = 0,
			updated_at = ?
		WHERE
			status = ?
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while retrying failed outbox events")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, StatusQueued, time.Now().Unix(), StatusFailed)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while retrying failed outbox events")
	}

	affected, _ := result.RowsAffected()

	return affected, nil
}

// ClearFailed implements OutboxRepository.
func (r *outboxRepository) ClearFailed(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM outbox
		WHERE status = ?
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while clearing failed outbox events")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, StatusFailed)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while clearing failed outbox events")
	}

	affected, _ := result.RowsAffected()

	return affected, nil
}

func (r *outboxRepository) setStatus(ctx context.Context, opID, eventStatus string, lastError *string) error {
	query := `
		UPDATE outbox
		SET
			status = ?,
			last_error = COALESCE(?, last_error),
			updated_at = ?
		WHERE
			op_id = ?
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating outbox event's status")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, eventStatus, lastError, time.Now().Unix(), opID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating outbox event's status")
	}

	return nil
}
