package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsel-ticketmaster/tm-gate/pkg/sqlitedb"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

func newDeviceStore(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlitedb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func queuedEvent(opID string) Event {
	return Event{
		OpID:     opID,
		Type:     "redemption",
		Payload:  json.RawMessage(`{"credential":"x"}`),
		Status:   StatusQueued,
		QueuedAt: time.Now(),
	}
}

func TestOutboxRepository_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testLogger(), newDeviceStore(t))

	require.NoError(t, repo.Enqueue(ctx, queuedEvent("op-1")))
	require.NoError(t, repo.Enqueue(ctx, queuedEvent("op-2")))

	queued, err := repo.FindManyByStatus(ctx, StatusQueued, 10)
	require.NoError(t, err)
	assert.Len(t, queued, 2)

	pending, err := repo.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	require.NoError(t, repo.MarkSending(ctx, []string{"op-1", "op-2"}))

	queued, err = repo.FindManyByStatus(ctx, StatusQueued, 10)
	require.NoError(t, err)
	assert.Empty(t, queued)

	// op-1 succeeds, op-2 bounces.
	require.NoError(t, repo.Delete(ctx, "op-1"))
	require.NoError(t, repo.Requeue(ctx, "op-2", "server is unreachable"))

	queued, err = repo.FindManyByStatus(ctx, StatusQueued, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "op-2", queued[0].OpID)
	assert.Equal(t, int64(1), queued[0].RetryCount)
	require.NotNil(t, queued[0].LastError)
	assert.Equal(t, "server is unreachable", *queued[0].LastError)

	require.NoError(t, repo.MarkFailed(ctx, "op-2", "gave up"))

	failed, err := repo.FindManyByStatus(ctx, StatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "op-2", failed[0].OpID)
}

func TestOutboxRepository_RequeueSending(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testLogger(), newDeviceStore(t))

	require.NoError(t, repo.Enqueue(ctx, queuedEvent("op-1")))
	require.NoError(t, repo.Enqueue(ctx, queuedEvent("op-2")))
	require.NoError(t, repo.MarkSending(ctx, []string{"op-1", "op-2"}))

	requeued, err := repo.RequeueSending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), requeued)

	queued, err := repo.FindManyByStatus(ctx, StatusQueued, 10)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	for _, e := range queued {
		// An interrupted attempt is not a refusal.
		assert.Equal(t, int64(0), e.RetryCount)
	}

	sending, err := repo.FindManyByStatus(ctx, StatusSending, 10)
	require.NoError(t, err)
	assert.Empty(t, sending)
}

func TestOutboxRepository_RetryAndClearFailed(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testLogger(), newDeviceStore(t))

	require.NoError(t, repo.Enqueue(ctx, queuedEvent("op-1")))
	require.NoError(t, repo.Enqueue(ctx, queuedEvent("op-2")))
	require.NoError(t, repo.MarkFailed(ctx, "op-1", "bad payload"))
	require.NoError(t, repo.MarkFailed(ctx, "op-2", "bad payload"))

	requeued, err := repo.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), requeued)

	queued, err := repo.FindManyByStatus(ctx, StatusQueued, 10)
	require.NoError(t, err)
	assert.Len(t, queued, 2)
	for _, e := range queued {
		assert.Equal(t, int64(0), e.RetryCount)
	}

	require.NoError(t, repo.MarkFailed(ctx, "op-1", "bad payload"))

	cleared, err := repo.ClearFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	failed, err := repo.FindManyByStatus(ctx, StatusFailed, 10)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestOutboxRepository_FindManyByStatusOrdersByQueueTime(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testLogger(), newDeviceStore(t))

	older := queuedEvent("op-older")
	older.QueuedAt = time.Now().Add(-time.Hour)
	newer := queuedEvent("op-newer")

	require.NoError(t, repo.Enqueue(ctx, newer))
	require.NoError(t, repo.Enqueue(ctx, older))

	queued, err := repo.FindManyByStatus(ctx, StatusQueued, 10)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, "op-older", queued[0].OpID)
	assert.Equal(t, "op-newer", queued[1].OpID)
}
