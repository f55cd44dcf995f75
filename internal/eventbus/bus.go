// Package eventbus is the in-process publish/subscribe surface between the
// orchestrator and anything that reacts to state changes. Delivery is
// ordered per entity id; a failing handler never blocks the rest.
package eventbus

import (
	"fmt"
	"sync"
)

// TypeWildcard subscribes a handler to every event type.
const TypeWildcard = "*"

// Handler consumes a delivered event.
type Handler func(Event)

// Subscription represents an active handler registration. Closing it is
// the only cleanup required; the bus holds no other reference to the
// handler's owner.
type Subscription struct {
	cancel func()
}

// Close unsubscribes the handler. Safe to call more than once.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

type registration struct {
	id      uint64
	handler Handler
}

// Bus delivers events synchronously to subscribers in registration order.
// Publishers for the same entity id are serialized so each subscriber sees
// that entity's events in publish order; publishers for distinct entities
// proceed independently.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	// byType maps an event type (or TypeWildcard) to registrations in
	// subscription order.
	byType map[string][]registration

	entityMu sync.Mutex
	entities map[string]*sync.Mutex

	logger Logger
}

// Option customizes bus construction.
type Option func(*Bus)

// WithLogger injects the diagnostics sink for handler failures.
func WithLogger(logger Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// New constructs an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		byType:   map[string][]registration{},
		entities: map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Subscribe registers a handler for an event type. Use TypeWildcard to
// receive every event.
func (b *Bus) Subscribe(eventType string, handler Handler) Subscription {
	if handler == nil {
		return Subscription{}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.byType[eventType] = append(b.byType[eventType], registration{id: id, handler: handler})
	b.mu.Unlock()
	return Subscription{
		cancel: func() {
			b.remove(eventType, id)
		},
	}
}

func (b *Bus) remove(eventType string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.byType[eventType]
	for i, reg := range regs {
		if reg.id == id {
			b.byType[eventType] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(b.byType[eventType]) == 0 {
		delete(b.byType, eventType)
	}
}

// Publish delivers the event to all matching subscribers. A handler panic
// is captured and reported to the logger; remaining subscribers still
// receive the event and the publisher never sees the failure.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	regs := make([]registration, 0, len(b.byType[event.Type])+len(b.byType[TypeWildcard]))
	regs = append(regs, b.byType[event.Type]...)
	if event.Type != TypeWildcard {
		regs = append(regs, b.byType[TypeWildcard]...)
	}
	b.mu.RUnlock()
	if len(regs) == 0 {
		return
	}

	lock := b.entityLock(event.EntityID)
	lock.Lock()
	defer lock.Unlock()
	for _, reg := range regs {
		b.deliver(reg.handler, event)
	}
}

func (b *Bus) deliver(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			if b.logger != nil {
				b.logger.Printf("eventbus: handler panic on %s (%s): %v", event.Type, event.EntityID, r)
			}
		}
	}()
	handler(event)
}

func (b *Bus) entityLock(entityID string) *sync.Mutex {
	b.entityMu.Lock()
	defer b.entityMu.Unlock()
	lock, ok := b.entities[entityID]
	if !ok {
		lock = &sync.Mutex{}
		b.entities[entityID] = lock
	}
	return lock
}

// SubscriberCount reports how many handlers are registered for a type,
// wildcard subscribers excluded.
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byType[eventType])
}

// String implements fmt.Stringer for debug logging.
func (b *Bus) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for _, regs := range b.byType {
		total += len(regs)
	}
	return fmt.Sprintf("eventbus.Bus(types=%d subscribers=%d)", len(b.byType), total)
}
