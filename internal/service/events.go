package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventRunStarted        EventType = "run_started"
	EventOptimizerProgress EventType = "optimizer_progress"
	EventRunCompleted      EventType = "run_completed"
	EventRunFailed         EventType = "run_failed"
	EventRunDeleted        EventType = "run_deleted"
)

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events.
// It is safe for concurrent use; runs publish from their own goroutines.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
	onPublish   func(Event)
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber; the channel is not closed
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// OnPublish registers a hook called for every published event
func (eb *EventBus) OnPublish(fn func(Event)) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.onPublish = fn
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.onPublish != nil {
		eb.onPublish(event)
	}
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
