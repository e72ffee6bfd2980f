package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/gateapp/serverapi"
)

// Drainer pushes queued outbox events to the server. It is the only
// component of the agent that touches the network: scans never wait on
// it, they only feed the queue it drains.
type Drainer struct {
	logger     *logrus.Logger
	repository OutboxRepository
	serverAPI  serverapi.Repository
	batchLimit int64
	maxRetries int64
	interval   time.Duration

	mu   sync.Mutex
	kick chan struct{}
}

type DrainerProperty struct {
	Logger     *logrus.Logger
	Repository OutboxRepository
	ServerAPI  serverapi.Repository
	BatchLimit int64
	MaxRetries int64
	Interval   time.Duration
}

func NewDrainer(props DrainerProperty) *Drainer {
	batchLimit := props.BatchLimit
	if batchLimit <= 0 {
		batchLimit = 100
	}

	return &Drainer{
		logger:     props.Logger,
		repository: props.Repository,
		serverAPI:  props.ServerAPI,
		batchLimit: batchLimit,
		maxRetries: props.MaxRetries,
		interval:   props.Interval,
		kick:       make(chan struct{}, 1),
	}
}

// Kick requests a drain outside the periodic schedule, typically right
// after a scan while the network happens to be up. It never blocks.
func (d *Drainer) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run drains on a fixed interval and on demand until the context is
// cancelled.
func (d *Drainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.kick:
		}

		if err := d.Drain(ctx); err != nil {
			d.logger.WithContext(ctx).WithError(err).Warn("outbox drain did not complete")
		}
	}
}

// Drain sends every queued event, oldest first. Only one drain runs at
// a time so the server sees operations in queue order.
func (d *Drainer) Drain(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// The drainer is the only writer of the sending status, so any event
	// still carrying it here was left mid-flight by a crash or an
	// interrupted drain and would never be fetched again.
	stranded, err := d.repository.RequeueSending(ctx)
	if err != nil {
		return err
	}
	if stranded > 0 {
		d.logger.WithContext(ctx).WithField("events", stranded).Warn("requeued outbox events left mid-flight")
	}

	for {
		events, err := d.repository.FindManyByStatus(ctx, StatusQueued, d.batchLimit)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		if err := d.drainBatch(ctx, events); err != nil {
			return err
		}

		if int64(len(events)) < d.batchLimit {
			return nil
		}
	}
}

func (d *Drainer) drainBatch(ctx context.Context, events []Event) error {
	opIDs := make([]string, len(events))
	ops := make([]serverapi.Operation, len(events))
	for k, e := range events {
		opIDs[k] = e.OpID
		ops[k] = serverapi.Operation{
			OpID:     e.OpID,
			Type:     e.Type,
			Payload:  e.Payload,
			QueuedAt: e.QueuedAt,
		}
	}

	if err := d.repository.MarkSending(ctx, opIDs); err != nil {
		return err
	}

	var resp serverapi.SyncBatchResponse

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		resp, err = d.serverAPI.SyncBatch(ctx, ops)
		if err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})
	if err != nil {
		// The whole batch stays durable; every event goes back in line.
		for _, e := range events {
			d.bounceEvent(ctx, e, err.Error())
		}

		return err
	}

	verdicts := make(map[string]serverapi.OperationResult, len(resp.Results))
	for _, result := range resp.Results {
		verdicts[result.OpID] = result
	}

	for _, e := range events {
		result, ok := verdicts[e.OpID]
		if !ok {
			d.bounceEvent(ctx, e, "operation missing from sync response")
			continue
		}

		switch result.Status {
		case serverapi.OpStatusSuccess, serverapi.OpStatusAlreadySynced:
			if err := d.repository.Delete(ctx, e.OpID); err != nil {
				return err
			}
		default:
			d.bounceEvent(ctx, e, result.Reason)
		}
	}

	return nil
}

// bounceEvent requeues an event for another attempt, or parks it for
// the operator once it exhausts the retry ceiling.
func (d *Drainer) bounceEvent(ctx context.Context, e Event, reason string) {
	if e.RetryCount+1 >= d.maxRetries {
		if err := d.repository.MarkFailed(ctx, e.OpID, reason); err != nil {
			d.logger.WithContext(ctx).WithError(err).Error()
		}

		d.logger.WithContext(ctx).WithFields(logrus.Fields{
			"op_id":  e.OpID,
			"reason": reason,
		}).Error("outbox event exhausted its retries")

		return
	}

	if err := d.repository.Requeue(ctx, e.OpID, reason); err != nil {
		d.logger.WithContext(ctx).WithError(err).Error()
	}
}
