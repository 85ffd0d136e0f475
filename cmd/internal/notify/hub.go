// Package notify pushes new-message hints to connected recipients over
// WebSocket. Delivery remains pull-based: a hint only tells the recipient it
// is worth polling the cursor API again.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

const defaultQueueSize = 16

// Event is one new-message hint.
type Event struct {
	Recipient string    `json:"recipient"`
	StoreTime time.Time `json:"storeTime"`
}

// Subscriber receives events for a single recipient.
//
// Design notes:
// - C is intentionally NOT closed by the hub to avoid panics from concurrent
//   publishers; Done signals shutdown instead.
// - Close is idempotent.
type Subscriber struct {
	C chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// Done returns a channel closed when the subscriber is shutting down.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Close signals the subscriber's goroutines to stop (idempotent).
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Hub fans out events to the subscribers of each recipient. Publishing never
// blocks: events for a slow subscriber are dropped once its queue is full.
type Hub struct {
	log *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:  log,
		subs: make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber for recipient.
func (h *Hub) Subscribe(recipient string, queueSize int) *Subscriber {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	sub := &Subscriber{
		C:    make(chan Event, queueSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[recipient]
	if set == nil {
		set = make(map[*Subscriber]struct{})
		h.subs[recipient] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscriber and closes it.
func (h *Hub) Unsubscribe(recipient string, sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	if set := h.subs[recipient]; set != nil {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, recipient)
		}
	}
	h.mu.Unlock()

	sub.Close()
}

// Publish delivers an event to every subscriber of recipient without
// blocking the caller.
func (h *Hub) Publish(recipient string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[recipient] {
		select {
		case sub.C <- ev:
		case <-sub.Done():
		default:
			h.log.Debug("notify.drop", "recipient", recipient)
		}
	}
}
