// Package bus is the in-process change notification bus. It tells the
// presentation layer (and background workers) what changed without coupling
// them to the stores that produced the change.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Topic names a kind of change.
type Topic string

const (
	CatalogChanged          Topic = "catalogChanged"
	OrdersChanged           Topic = "ordersChanged"
	SettingsChanged         Topic = "settingsChanged"
	CollectionChanged       Topic = "collectionChanged"
	SyncFailed              Topic = "syncFailed"
	CourierBookingRequested Topic = "courierBookingRequested"
)

// Source tells listeners which store caused the change.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceBackup Source = "backup"
)

// Event is delivered to every subscriber of its Topic.
// Listeners must be idempotent: a local write followed by its backup echo
// produces the same semantic event twice in quick succession.
type Event struct {
	Payload    any
	Topic      Topic
	Collection string
	Source     Source
}

// Handler reacts to an event. It runs on the publisher's goroutine and must be cheap.
type Handler func(ctx context.Context, ev Event)

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus   *Bus
	topic Topic
	id    uint64
	once  sync.Once
}

// Unsubscribe detaches the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s.topic, s.id)
	})
}

type listener struct {
	handler Handler
	id      uint64
}

// Bus is a typed pub/sub with explicit subscribe/unsubscribe handles.
type Bus struct {
	listeners map[Topic][]listener
	logger    *slog.Logger
	nextID    atomic.Uint64
	mu        sync.RWMutex
}

// New creates an empty bus
func New(logger *slog.Logger) *Bus {
	return &Bus{
		listeners: make(map[Topic][]listener),
		logger:    logger,
	}
}

// Subscribe registers handler for topic. Bind the returned handle to the
// lifetime of the consuming component and Unsubscribe when it goes away.
func (b *Bus) Subscribe(topic Topic, handler Handler) *Subscription {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.listeners[topic] = append(b.listeners[topic], listener{id: id, handler: handler})
	b.mu.Unlock()

	b.logger.Debug("listener subscribed", "topic", topic, "listener_id", id)

	return &Subscription{bus: b, topic: topic, id: id}
}

// Publish delivers ev synchronously to the current subscribers of ev.Topic.
// A panicking handler is logged and does not stop delivery to the others.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	current := make([]listener, len(b.listeners[ev.Topic]))
	copy(current, b.listeners[ev.Topic])
	b.mu.RUnlock()

	for _, l := range current {
		b.dispatch(ctx, l, ev)
	}
}

// ListenerCount returns the number of handlers attached to topic.
func (b *Bus) ListenerCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.listeners[topic])
}

func (b *Bus) dispatch(ctx context.Context, l listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("listener panicked",
				"topic", ev.Topic,
				"collection", ev.Collection,
				"listener_id", l.id,
				"panic", r,
			)
		}
	}()

	l.handler(ctx, ev)
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.listeners[topic]
	for i, l := range current {
		if l.id == id {
			b.listeners[topic] = append(current[:i:i], current[i+1:]...)
			break
		}
	}

	if len(b.listeners[topic]) == 0 {
		delete(b.listeners, topic)
	}

	b.logger.Debug("listener unsubscribed", "topic", topic, "listener_id", id)
}
