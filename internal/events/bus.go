package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(EngineReadyEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event is generic, so each concrete type needs its own call
	switch e := ev.(type) {
	case EngineStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case EngineSpawnedEvent:
		event.Publish(b.dispatcher, e)
	case EngineSpawnFailedEvent:
		event.Publish(b.dispatcher, e)
	case EngineExitedEvent:
		event.Publish(b.dispatcher, e)
	case EngineReadyEvent:
		event.Publish(b.dispatcher, e)
	case EngineOutputEvent:
		event.Publish(b.dispatcher, e)
	case WindowVisibilityEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e EngineExitedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(EngineStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EngineSpawnedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EngineSpawnFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EngineExitedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EngineReadyEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EngineOutputEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(WindowVisibilityEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unknown handler types get a no-op unsubscribe
		return func() {}
	}
}
