package outbox

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type OutboxUseCase interface {
	// Enqueue durably queues one operation and returns its op id. It
	// refuses new work once the queue hits the configured ceiling.
	Enqueue(ctx context.Context, opType string, payload interface{}) (string, error)
	ListFailed(ctx context.Context) ([]Event, error)
	RetryFailed(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
}

type outboxUseCase struct {
	logger       *logrus.Logger
	repository   OutboxRepository
	maxQueuedOps int64
}

type OutboxUseCaseProperty struct {
	Logger       *logrus.Logger
	Repository   OutboxRepository
	MaxQueuedOps int64
}

func NewOutboxUseCase(props OutboxUseCaseProperty) OutboxUseCase {
	return &outboxUseCase{
		logger:       props.Logger,
		repository:   props.Repository,
		maxQueuedOps: props.MaxQueuedOps,
	}
}

// Enqueue implements OutboxUseCase.
func (u *outboxUseCase) Enqueue(ctx context.Context, opType string, payload interface{}) (string, error) {
	if u.maxQueuedOps > 0 {
		pending, err := u.repository.CountPending(ctx)
		if err != nil {
			return "", err
		}

		if pending >= u.maxQueuedOps {
			return "", errors.New(http.StatusInsufficientStorage, status.UNPROCESSABLE_ENTITY, "outbox queue is full")
		}
	}

	buff, err := json.Marshal(payload)
	if err != nil {
		u.logger.WithContext(ctx).WithError(err).Error()
		return "", errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while enqueueing outbox event")
	}

	e := Event{
		OpID:     uuid.NewString(),
		Type:     opType,
		Payload:  buff,
		Status:   StatusQueued,
		QueuedAt: time.Now(),
	}

	if err := u.repository.Enqueue(ctx, e); err != nil {
		return "", err
	}

	return e.OpID, nil
}

// ListFailed implements OutboxUseCase.
func (u *outboxUseCase) ListFailed(ctx context.Context) ([]Event, error) {
	return u.repository.FindManyByStatus(ctx, StatusFailed, 1000)
}

// RetryFailed implements OutboxUseCase.
func (u *outboxUseCase) RetryFailed(ctx context.Context) (int64, error) {
	return u.repository.RetryFailed(ctx)
}

// ClearFailed implements OutboxUseCase.
func (u *outboxUseCase) ClearFailed(ctx context.Context) (int64, error) {
	return u.repository.ClearFailed(ctx)
}
