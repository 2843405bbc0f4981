package events

import (
	"context"
	"sync"

	"buybackd/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeActivityRecorded EventType = "activity_recorded"
	EventTypeCycleStarted     EventType = "cycle_started"
	EventTypeCycleFinished    EventType = "cycle_finished"
	EventTypeSnapshotReplaced EventType = "snapshot_replaced"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ActivityRecordedEvent fires whenever a pipeline step appends an
// activity entry; the websocket hub relays it to dashboard clients.
type ActivityRecordedEvent struct {
	Activity models.Activity
}

func (e ActivityRecordedEvent) Type() EventType {
	return EventTypeActivityRecorded
}

// CycleStartedEvent fires when the orchestrator begins a cycle
type CycleStartedEvent struct {
	CycleID int64
	Manual  bool
}

func (e CycleStartedEvent) Type() EventType {
	return EventTypeCycleStarted
}

// CycleFinishedEvent fires when a cycle reaches a terminal state
type CycleFinishedEvent struct {
	Cycle            models.Cycle
	RecipientsPaid   int
	RecipientsFailed int
	TotalDistributed uint64
}

func (e CycleFinishedEvent) Type() EventType {
	return EventTypeCycleFinished
}

// SnapshotReplacedEvent fires after the holder snapshot is swapped
type SnapshotReplacedEvent struct {
	HolderCount int
}

func (e SnapshotReplacedEvent) Type() EventType {
	return EventTypeSnapshotReplaced
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously; a panicking handler does not take down the others.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus stashes events published during a unit of work and
// flushes them to the underlying bus only after the DB commit, so
// subscribers never observe state that was rolled back.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit. Events are emitted on
// a background context because the transaction context may already be
// done.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
