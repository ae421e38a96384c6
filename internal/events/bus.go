package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Journal persists published events.
type Journal interface {
	Append(e Event) (int64, error)
}

// Bus fans events out to subscribers without ever blocking the publisher.
type Bus struct {
	mu      sync.RWMutex
	byType  map[string][]chan Event
	all     []chan Event
	journal Journal // may be nil
	logger  *slog.Logger
	closed  bool
	dropped atomic.Int64
}

// NewBus creates a new event bus. A nil journal disables persistence.
func NewBus(journal Journal, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		byType:  make(map[string][]chan Event),
		journal: journal,
		logger:  logger,
	}
}

// Publish journals e and offers it to every matching subscriber. Slow
// subscribers lose events rather than stall the job that published them.
// A nil bus is a valid no-op sink.
func (b *Bus) Publish(_ context.Context, e Event) error {
	if b == nil {
		return nil
	}

	if b.journal != nil && !b.isClosed() {
		if _, err := b.journal.Append(e); err != nil {
			b.logger.Error("failed to journal event", "type", e.EventType(), "error", err)
		}
	}

	// Sends happen under the read lock so Unsubscribe and Close, which take
	// the write lock, never close a channel mid-send. Sends never block.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, ch := range b.byType[e.EventType()] {
		b.offer(ch, e)
	}
	for _, ch := range b.all {
		b.offer(ch, e)
	}
	return nil
}

func (b *Bus) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

func (b *Bus) offer(ch chan Event, e Event) {
	select {
	case ch <- e:
	default:
		b.dropped.Add(1)
		b.logger.Warn("subscriber channel full, dropping event",
			"type", e.EventType(),
			"entity_type", e.EntityType(),
			"entity_id", e.EntityID())
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Subscribe returns a channel for events of a specific type.
func (b *Bus) Subscribe(eventType string, bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.byType[eventType] = append(b.byType[eventType], ch)
	return ch
}

// SubscribeAll returns a channel for all events.
func (b *Bus) SubscribeAll(bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.all = append(b.all, ch)
	return ch
}

// SubscribeEntity returns events for one entity, e.g. a single job.
// The returned channel closes when the bus closes.
func (b *Bus) SubscribeEntity(entityType, entityID string, bufferSize int) <-chan Event {
	src := b.SubscribeAll(bufferSize * 10)
	out := make(chan Event, bufferSize)

	go func() {
		defer close(out)
		for e := range src {
			if e.EntityType() != entityType || e.EntityID() != entityID {
				continue
			}
			select {
			case out <- e:
			default:
			}
		}
	}()
	return out
}

// Unsubscribe removes and closes a subscription channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.byType {
		if i := indexOf(subs, ch); i >= 0 {
			close(subs[i])
			b.byType[eventType] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
	if i := indexOf(b.all, ch); i >= 0 {
		close(b.all[i])
		b.all = append(b.all[:i], b.all[i+1:]...)
	}
}

func indexOf(subs []chan Event, ch <-chan Event) int {
	for i, sub := range subs {
		if sub == ch {
			return i
		}
	}
	return -1
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.byType {
		for _, ch := range subs {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
	b.byType = nil
	b.all = nil
	return nil
}
