package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"buybackd/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_EmitDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	received := make(chan CycleStartedEvent, 1)

	bus.Subscribe(EventTypeCycleStarted, func(ctx context.Context, event Event) {
		if ev, ok := event.(CycleStartedEvent); ok {
			received <- ev
		}
	})

	bus.Emit(context.Background(), CycleStartedEvent{CycleID: 42, Manual: true})

	select {
	case ev := <-received:
		assert.Equal(t, int64(42), ev.CycleID)
		assert.True(t, ev.Manual)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBus_EmitOnlyMatchingType(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	var got []EventType

	record := func(ctx context.Context, event Event) {
		mu.Lock()
		got = append(got, event.Type())
		mu.Unlock()
	}
	bus.Subscribe(EventTypeCycleFinished, record)

	bus.Emit(context.Background(), CycleStartedEvent{CycleID: 1})
	bus.Emit(context.Background(), SnapshotReplacedEvent{HolderCount: 10})

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, got)
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()
	received := make(chan struct{}, 1)

	bus.Subscribe(EventTypeSnapshotReplaced, func(ctx context.Context, event Event) {
		panic("handler bug")
	})
	bus.Subscribe(EventTypeSnapshotReplaced, func(ctx context.Context, event Event) {
		received <- struct{}{}
	})

	bus.Emit(context.Background(), SnapshotReplacedEvent{HolderCount: 3})

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("second handler never ran")
	}
}

func TestTransactionalBus_FlushDeliversPending(t *testing.T) {
	mainBus := NewBus()
	txBus := NewTransactionalBus(mainBus)

	received := make(chan ActivityRecordedEvent, 2)
	mainBus.Subscribe(EventTypeActivityRecorded, func(ctx context.Context, event Event) {
		received <- event.(ActivityRecordedEvent)
	})

	txBus.Publish(ActivityRecordedEvent{Activity: models.Activity{ID: 1}})
	txBus.Publish(ActivityRecordedEvent{Activity: models.Activity{ID: 2}})

	// Nothing reaches subscribers before the flush.
	select {
	case <-received:
		t.Fatal("event delivered before flush")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, txBus.Flush(context.Background()))

	ids := map[int64]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-received:
			ids[ev.Activity.ID] = true
		case <-time.After(time.Second):
			t.Fatal("pending event was not flushed")
		}
	}
	assert.True(t, ids[1])
	assert.True(t, ids[2])
}

func TestTransactionalBus_DiscardDropsPending(t *testing.T) {
	mainBus := NewBus()
	txBus := NewTransactionalBus(mainBus)

	received := make(chan Event, 1)
	mainBus.Subscribe(EventTypeCycleFinished, func(ctx context.Context, event Event) {
		received <- event
	})

	txBus.Publish(CycleFinishedEvent{Cycle: models.Cycle{ID: 5}})
	txBus.Discard()
	require.NoError(t, txBus.Flush(context.Background()))

	select {
	case <-received:
		t.Fatal("discarded event was delivered")
	case <-time.After(50 * time.Millisecond):
	}
}
