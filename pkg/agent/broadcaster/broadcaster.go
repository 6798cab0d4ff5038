// Package broadcaster manages subscribers and fans out agent events:
// fresh telemetry samples and startup-item change notifications.
package broadcaster

import (
	"sync"

	"github.com/google/uuid"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// EventType discriminates agent events.
type EventType string

const (
	// EventSample carries a fresh telemetry sample.
	EventSample EventType = "sample"

	// EventStartupChanged signals that a LaunchAgents/LaunchDaemons
	// directory changed; clients re-list startup items on receipt.
	EventStartupChanged EventType = "startup-changed"
)

// Event is one agent notification. Sample is set only for EventSample;
// Path names the changed plist for EventStartupChanged when known.
type Event struct {
	Type   EventType              `json:"type"`
	Sample *types.TelemetrySample `json:"sample,omitempty"`
	Path   string                 `json:"path,omitempty"`
}

// Subscriber is one client receiving agent events.
type Subscriber struct {
	ID     string
	Events chan Event
}

// Broadcaster distributes agent events to subscribers. Sends never
// block: a subscriber that falls behind loses events rather than
// stalling the sampler.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New creates a new Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe creates a new subscription. Returns nil after Close.
func (b *Broadcaster) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan Event, 100),
	}

	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// NotifySample sends a fresh telemetry sample to all subscribers.
func (b *Broadcaster) NotifySample(sample types.TelemetrySample) {
	b.notify(Event{Type: EventSample, Sample: &sample})
}

// NotifyStartupChanged signals a startup-item change.
func (b *Broadcaster) NotifyStartupChanged(path string) {
	b.notify(Event{Type: EventStartupChanged, Path: path})
}

func (b *Broadcaster) notify(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		select {
		case sub.Events <- event:
		default:
			// Channel full, event dropped
		}
	}
}

// Close closes the broadcaster and all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
