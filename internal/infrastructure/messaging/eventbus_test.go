package messaging

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confession-hub/confession-bot/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:     false,
		EnableMetrics: true,
	})
}

func TestEventBus_DeliversToSubscribedHandler(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var received []shared.Event
	err := bus.Subscribe(shared.EventRankUp, func(e shared.Event) error {
		received = append(received, e)
		return nil
	})
	require.NoError(t, err)

	event := shared.NewRankUpEvent(42, 1, 2, "Regular", "📝", 65)
	require.NoError(t, bus.Publish(event))

	require.Len(t, received, 1)
	assert.Equal(t, shared.EventRankUp, received[0].EventType())
}

func TestEventBus_DoesNotDeliverToOtherEventTypes(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var calls int
	require.NoError(t, bus.Subscribe(shared.EventAchievementGranted, func(shared.Event) error {
		calls++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewRankUpEvent(42, 1, 2, "Regular", "📝", 65)))
	assert.Zero(t, calls)
}

func TestEventBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var calls int
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		calls++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewRankUpEvent(42, 1, 2, "Regular", "📝", 65)))
	require.NoError(t, bus.Publish(shared.NewAchievementGrantedEvent(42, "first_confession", "First", "", 50, false)))
	assert.Equal(t, 2, calls)
}

func TestEventBus_HandlerErrorDoesNotPropagate(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventRankUp, func(shared.Event) error {
		return errors.New("notification transport down")
	}))

	assert.NoError(t, bus.Publish(shared.NewRankUpEvent(42, 1, 2, "Regular", "📝", 65)))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalFailed)
}

func TestEventBus_PublishAfterCloseFails(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewRankUpEvent(42, 1, 2, "Regular", "📝", 65))
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestEventBus_CloseIsIdempotent(t *testing.T) {
	bus := newSyncBus()
	assert.NoError(t, bus.Close())
	assert.NoError(t, bus.Close())
}

func TestEventBus_AsyncDeliveryDrainsOnClose(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 4,
	})

	var handled atomic.Int64
	var wg sync.WaitGroup
	wg.Add(10)
	require.NoError(t, bus.Subscribe(shared.EventPointsAwarded, func(shared.Event) error {
		handled.Add(1)
		wg.Done()
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(shared.NewPointsAwardedEvent(42, "comment_posted", 5, 100)))
	}

	wg.Wait()
	require.NoError(t, bus.Close())
	assert.Equal(t, int64(10), handled.Load())
}

func TestEventBus_NilHandlerRejected(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventRankUp, nil))
	assert.Error(t, bus.SubscribeAll(nil))
}
