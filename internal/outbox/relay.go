package outbox

import (
	"context"
	"time"

	"github.com/richardliu001/school-rewards/internal/model"
	"go.uber.org/zap"
)

const maxBackoff = 30 * time.Second

// Store is the slice of repo.Repository the relay needs.
type Store interface {
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error
}

// Relay copies committed outbox rows to the broker in id order.
type Relay struct {
	store    Store
	interval time.Duration
	batch    int
	log      *zap.SugaredLogger
}

func NewRelay(store Store, interval time.Duration, batch int, log *zap.SugaredLogger) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Relay{store: store, interval: interval, batch: batch, log: log}
}

// RunOnce publishes one batch. It stops at the first publish failure so a
// later event never overtakes an earlier one; the failed row is retried on
// the next pass.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.store.PollOutbox(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, evt := range events {
		if err := r.store.PublishEvent(ctx, evt); err != nil {
			r.log.Warnw("outbox publish failed", "event_id", evt.EventID, "type", evt.EventType, "err", err)
			return sent, err
		}
		if err := r.store.MarkOutboxProcessed(ctx, evt.ID); err != nil {
			return sent, err
		}
		sent++
		r.log.Infow("outbox event published", "event_id", evt.EventID, "type", evt.EventType,
			"aggregate", evt.Aggregate, "aggregate_id", evt.AggregateID)
	}
	return sent, nil
}

// Run polls until ctx is cancelled, backing off while publishing fails.
func (r *Relay) Run(ctx context.Context) error {
	wait := r.interval
	for {
		sent, err := r.RunOnce(ctx)
		switch {
		case err != nil:
			wait = nextBackoff(wait, r.interval)
			r.log.Errorw("outbox batch failed", "err", err, "retry_in", wait.String())
		case sent == r.batch:
			// more rows are probably waiting
			wait = 0
		default:
			wait = r.interval
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func nextBackoff(current, base time.Duration) time.Duration {
	if current < base {
		current = base
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
