// Package eventbus decouples schedule mutations from their observers
// (autosave dirty tracking, future sync layers) without giving the domain
// packages any knowledge of the subscribers.
package eventbus

import (
	"sync"
	"time"
)

// Kind labels a schedule mutation.
type Kind string

const (
	KindTrackAdded    Kind = "track.added"
	KindTrackRenamed  Kind = "track.renamed"
	KindTrackHidden   Kind = "track.hidden"
	KindTrackRemoved  Kind = "track.removed"
	KindEventCreated  Kind = "event.created"
	KindEventMoved    Kind = "event.moved"
	KindEventRetimed  Kind = "event.retimed"
	KindEventRenamed  Kind = "event.renamed"
	KindEventDeleted  Kind = "event.deleted"
	KindRuleApplied   Kind = "rule.applied"
	KindStateRestored Kind = "state.restored"
)

// Mutation is a small, serializable notification that the schedule changed.
//
// Contract:
//   - Publish never blocks; slow subscribers lose mutations.
//   - Subscribers receive on buffered channels they size themselves.
type Mutation struct {
	Kind    Kind      `json:"kind"`
	TrackID string    `json:"track_id,omitempty"`
	EventID string    `json:"event_id,omitempty"`
	At      time.Time `json:"at"`
}

// Bus is an in-memory fanout of schedule mutations. It owns no background
// goroutines.
type Bus struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]chan Mutation
}

func New() *Bus {
	return &Bus{subs: map[uint64]chan Mutation{}}
}

// Publish delivers m to every subscriber, dropping it for any whose buffer
// is full.
func (b *Bus) Publish(m Mutation) {
	if m.At.IsZero() {
		m.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- m:
		default:
		}
	}
}

// Subscribe registers a new buffered subscriber. The returned cancel func
// must be called exactly once; the channel is closed by it.
func (b *Bus) Subscribe(buffer int) (<-chan Mutation, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Mutation, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
