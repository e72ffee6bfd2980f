package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/gateapp/serverapi"
)

type fakeServerAPI struct {
	batches   [][]serverapi.Operation
	responder func(ops []serverapi.Operation) (serverapi.SyncBatchResponse, error)
}

func (f *fakeServerAPI) SyncBatch(ctx context.Context, ops []serverapi.Operation) (serverapi.SyncBatchResponse, error) {
	f.batches = append(f.batches, ops)
	return f.responder(ops)
}

func (f *fakeServerAPI) Bootstrap(ctx context.Context) (serverapi.BootstrapResponse, error) {
	return serverapi.BootstrapResponse{}, nil
}

func allWithStatus(opStatus string) func(ops []serverapi.Operation) (serverapi.SyncBatchResponse, error) {
	return func(ops []serverapi.Operation) (serverapi.SyncBatchResponse, error) {
		results := make([]serverapi.OperationResult, len(ops))
		for k, op := range ops {
			results[k] = serverapi.OperationResult{OpID: op.OpID, Status: opStatus, Reason: "boom"}
		}

		return serverapi.SyncBatchResponse{Results: results}, nil
	}
}

func newTestDrainer(repo OutboxRepository, api serverapi.Repository, maxRetries int64) *Drainer {
	return NewDrainer(DrainerProperty{
		Logger:     testLogger(),
		Repository: repo,
		ServerAPI:  api,
		BatchLimit: 10,
		MaxRetries: maxRetries,
		Interval:   time.Minute,
	})
}

func TestDrainer_Drain_DeletesAcknowledgedEvents(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testLogger(), newDeviceStore(t))

	require.NoError(t, repo.Enqueue(ctx, queuedEvent("op-1")))
	require.NoError(t, repo.Enqueue(ctx, queuedEvent("op-2")))

	api := &fakeServerAPI{responder: allWithStatus(serverapi.OpStatusSuccess)}
	d := newTestDrainer(repo, api, 3)

	require.NoError(t, d.Drain(ctx))

	pending, err := repo.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
	require.Len(t, api.batches, 1)
	assert.Len(t, api.batches[0], 2)
}

func TestDrainer_Drain_AlreadySyncedCountsAsAcknowledged(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testLogger(), newDeviceStore(t))

	require.NoError(t, repo.Enqueue(ctx, queuedEvent("op-1")))

	api := &fakeServerAPI{responder: allWithStatus(serverapi.OpStatusAlreadySynced)}
	d := newTestDrainer(repo, api, 3)

	require.NoError(t, d.Drain(ctx))

	pending, err := repo.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
}

func TestDrainer_Drain_RejectedEventHitsRetryCeiling(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testLogger(), newDeviceStore(t))

	require.NoError(t, repo.Enqueue(ctx, queuedEvent("op-1")))

	api := &fakeServerAPI{responder: allWithStatus(serverapi.OpStatusFailed)}
	d := newTestDrainer(repo, api, 2)

	// First drain requeues, second drain exhausts the ceiling.
	require.NoError(t, d.Drain(ctx))

	queued, err := repo.FindManyByStatus(ctx, StatusQueued, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, int64(1), queued[0].RetryCount)

	require.NoError(t, d.Drain(ctx))

	queued, err = repo.FindManyByStatus(ctx, StatusQueued, 10)
	require.NoError(t, err)
	assert.Empty(t, queued)

	failed, err := repo.FindManyByStatus(ctx, StatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "op-1", failed[0].OpID)
	require.NotNil(t, failed[0].LastError)
	assert.Equal(t, "boom", *failed[0].LastError)
}

func TestDrainer_Drain_RecoversEventsStrandedMidFlight(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testLogger(), newDeviceStore(t))

	// A previous process died between marking the event sending and
	// hearing the verdict.
	require.NoError(t, repo.Enqueue(ctx, queuedEvent("op-1")))
	require.NoError(t, repo.MarkSending(ctx, []string{"op-1"}))

	api := &fakeServerAPI{responder: allWithStatus(serverapi.OpStatusSuccess)}
	d := newTestDrainer(repo, api, 3)

	require.NoError(t, d.Drain(ctx))

	pending, err := repo.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
	require.Len(t, api.batches, 1)
	require.Len(t, api.batches[0], 1)
	assert.Equal(t, "op-1", api.batches[0][0].OpID)
}

func TestDrainer_Drain_NothingQueuedMakesNoCalls(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testLogger(), newDeviceStore(t))

	api := &fakeServerAPI{responder: allWithStatus(serverapi.OpStatusSuccess)}
	d := newTestDrainer(repo, api, 3)

	require.NoError(t, d.Drain(ctx))
	assert.Empty(t, api.batches)
}
