package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types published by background activities. Consumers (the websocket
// feed, tests) only ever read these; they never call back into the services.
const (
	TypeStarted          = "started"
	TypeStopped          = "stopped"
	TypeLogLine          = "log_line"
	TypePairingChanged   = "pairing_changed"
	TypeDispatchSummary  = "dispatch_summary"
	TypeDispatchFailed   = "dispatch_failed"
	TypeReconcileSummary = "reconcile_summary"
)

// Event is one notification from a background activity to the owning
// context.
type Event struct {
	ID   string      `json:"id"`
	At   time.Time   `json:"at"`
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

const subscriberBuffer = 64

// Bus is a one-way fan-out channel from background goroutines to any number
// of subscribers. Publish never blocks: an event published while a
// subscriber's buffer is full is dropped for that subscriber.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Publish delivers an event to every current subscriber.
func (b *Bus) Publish(typ string, data interface{}) {
	e := Event{
		ID:   uuid.NewString(),
		At:   time.Now().UTC(),
		Type: typ,
		Data: data,
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// drop for slow consumers rather than stall a background task
		}
	}
}

// Logf publishes a formatted log_line event. Background tasks use this for
// human-readable progress lines.
func (b *Bus) Logf(format string, args ...interface{}) {
	b.Publish(TypeLogLine, map[string]string{"line": fmt.Sprintf(format, args...)})
}

// Subscribe registers a new consumer. The returned cancel func must be
// called to release the subscription.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}
