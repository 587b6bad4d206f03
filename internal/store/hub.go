package store

import (
	"context"
	"sync"

	"billfold/internal/core"
)

// Subscription is one consumer's snapshot feed. C carries the full
// current record set after every change; slow consumers only ever see
// the latest snapshot, intermediate ones are dropped.
type Subscription struct {
	C <-chan core.Snapshot

	ch   chan core.Snapshot
	hub  *Hub
	once sync.Once
}

// Cancel detaches the subscription and closes C. It is idempotent and
// guarantees no delivery happens after it returns.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Hub fans snapshots out to subscribers. Backends embed one and call
// Broadcast after every successful mutation.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe attaches a new subscriber. The subscription is torn down
// automatically when ctx is done.
func (h *Hub) Subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{
		ch:  make(chan core.Snapshot, 1),
		hub: h,
	}
	sub.C = sub.ch

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Cancel()
	}()

	return sub
}

// Broadcast delivers a snapshot to every live subscriber. Sends never
// block: a pending undelivered snapshot is replaced by the newer one.
func (h *Hub) Broadcast(snap core.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.ch <- snap:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snap
		}
	}
}

// CloseAll cancels every remaining subscription. Used by store Close.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}
