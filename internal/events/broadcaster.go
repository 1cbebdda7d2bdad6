// Package events provides an SSE broadcaster for storage change
// notifications, scoped per account.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bytevault/bytevault/internal/metrics"
)

const (
	EventUpload = "upload"
	EventMkdir  = "mkdir"
	EventDelete = "delete"
	EventMove   = "move"
)

// Event is one storage change. Paths are account-relative
// (category directory plus path inside it).
type Event struct {
	Type      string `json:"type"`
	Category  string `json:"category"`
	Path      string `json:"path"`
	To        string `json:"to,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type subscriber struct {
	accountID int
	ch        chan Event
}

// Broadcaster fans storage events out to SSE subscribers. Each
// subscription is bound to one account and only sees that account's
// changes.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]*subscriber
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]*subscriber),
	}
}

// Subscribe registers a listener for one account's events. The caller
// must Unsubscribe when done.
func (b *Broadcaster) Subscribe(accountID int) chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subscribers[ch] = &subscriber{accountID: accountID, ch: ch}
	b.mu.Unlock()
	metrics.SetSSEConnectionsActive(int64(b.Count()))
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	close(ch)
	b.mu.Unlock()
	metrics.SetSSEConnectionsActive(int64(b.Count()))
}

// Publish delivers an event to the account's subscribers. Non-blocking:
// events are dropped for slow consumers.
func (b *Broadcaster) Publish(accountID int, event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if sub.accountID != accountID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Drop event for slow consumer
		}
	}
	metrics.RecordSSEEvent(event.Type)
}

// Count returns the current number of subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// MarshalEvent serializes an event to JSON.
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}
