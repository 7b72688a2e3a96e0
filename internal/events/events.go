// Package events provides the in-process publish/subscribe bus used to fan
// out run lifecycle notifications to the HTTP event stream and other
// listeners.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a class of system event
type EventType string

const (
	// RunStarted fires when an aggregation run begins
	RunStarted EventType = "run_started"
	// RunCompleted fires when an aggregation run finishes successfully
	RunCompleted EventType = "run_completed"
	// RunFailed fires when an aggregation run aborts
	RunFailed EventType = "run_failed"
	// RegimeChanged fires when the detected market regime label changes
	RegimeChanged EventType = "regime_changed"
	// ArchiveUploaded fires when a run snapshot lands in the object store
	ArchiveUploaded EventType = "archive_uploaded"
	// ErrorOccurred fires for recoverable background errors
	ErrorOccurred EventType = "error_occurred"
)

// Event is one published event instance
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data,omitempty"`
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(event *Event)

type subscription struct {
	id uint64
	fn Handler
}

// Bus is a simple in-process event bus. Safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[EventType][]subscription
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscription),
		log:      log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a handler for one event type. The returned function
// removes the subscription; long-lived stream connections must call it on
// disconnect.
func (b *Bus) Subscribe(t EventType, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, fn: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[t]
		for i, sub := range subs {
			if sub.id == id {
				b.handlers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers a handler for multiple event types
func (b *Bus) SubscribeAll(types []EventType, h Handler) func() {
	cancels := make([]func(), 0, len(types))
	for _, t := range types {
		cancels = append(cancels, b.Subscribe(t, h))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// Publish delivers an event to every subscribed handler. A panicking handler
// is logged and skipped so one bad listener cannot take down the publisher.
func (b *Bus) Publish(module string, data EventData) {
	event := &Event{
		Type:      data.EventType(),
		Timestamp: time.Now().UTC(),
		Module:    module,
		Data:      data,
	}

	b.mu.RLock()
	handlers := append([]subscription(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h.fn, event)
	}

	b.log.Debug().
		Str("type", string(event.Type)).
		Str("module", module).
		Int("handlers", len(handlers)).
		Msg("Event published")
}

func (b *Bus) deliver(h Handler, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("type", string(event.Type)).
				Interface("panic", r).
				Msg("Event handler panicked")
		}
	}()
	h(event)
}
