package bus

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the ledger mutation an event describes.
type Kind string

const (
	KindCheckedIn     Kind = "checked_in"
	KindCheckedOut    Kind = "checked_out"
	KindAutoCheckout  Kind = "auto_checkout"
	KindMemberUpdated Kind = "member_updated"
	KindMemberDeleted Kind = "member_deleted"
)

// Event is a fire-and-forget notification of a ledger mutation.
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	MemberID   int64     `json:"member_id,omitempty"`
	MemberName string    `json:"member_name,omitempty"`
	Count      int       `json:"count,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEvent builds an event with a fresh id.
func NewEvent(kind Kind, at time.Time) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Timestamp: at}
}

// Broadcaster is the publish contract the engine and scheduler depend on.
// Delivery is best-effort; a missed broadcast never affects the ledger.
type Broadcaster interface {
	Publish(evt Event)
}

// Hub fans events out to subscribers. Slow subscribers drop events rather
// than block the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its channel along with a
// cancel function that must be called when the subscriber goes away.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber whose buffer has room.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
