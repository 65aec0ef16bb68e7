package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	events    []model.OutboxEvent
	failOn    uint64
	published []uint64
	processed map[uint64]bool
}

func (f *fakeStore) PollOutbox(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	var out []model.OutboxEvent
	for _, e := range f.events {
		if !f.processed[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkOutboxProcessed(_ context.Context, id uint64) error {
	f.processed[id] = true
	return nil
}

func (f *fakeStore) PublishEvent(_ context.Context, evt model.OutboxEvent) error {
	if evt.ID == f.failOn {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, evt.ID)
	return nil
}

func newFakeStore(n int) *fakeStore {
	f := &fakeStore{processed: map[uint64]bool{}}
	for i := 1; i <= n; i++ {
		f.events = append(f.events, model.OutboxEvent{ID: uint64(i), EventType: "OrderApproved"})
	}
	return f
}

func TestRelay_RunOnceStopsAtFirstFailure(t *testing.T) {
	store := newFakeStore(4)
	store.failOn = 3
	relay := NewRelay(store, time.Millisecond, 10, zap.NewNop().Sugar())

	sent, err := relay.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []uint64{1, 2}, store.published)
	assert.False(t, store.processed[3])
	assert.False(t, store.processed[4])

	store.failOn = 0
	sent, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []uint64{1, 2, 3, 4}, store.published)
}

func TestRelay_RunOnceHonoursBatch(t *testing.T) {
	store := newFakeStore(5)
	relay := NewRelay(store, time.Millisecond, 2, zap.NewNop().Sugar())

	sent, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	store := newFakeStore(3)
	relay := NewRelay(store, time.Millisecond, 10, zap.NewNop().Sugar())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := relay.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []uint64{1, 2, 3}, store.published)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(0, time.Second))
	assert.Equal(t, 8*time.Second, nextBackoff(4*time.Second, time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(20*time.Second, time.Second))
}
