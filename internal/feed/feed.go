// Package feed provides the change-notification hub behind live store reads.
//
// A store owns one Hub and calls Notify after every committed write. Live
// reads are built with Watch: the query runs once on subscription and again
// after each notification, and every result is delivered to the reader.
// If the reader falls behind, intermediate results are replaced by the
// latest one, so the newest committed state is always the next value read.
package feed

import (
	"context"
	"sync"
)

// Hub fans out change notifications to any number of subscribers.
// It is safe for concurrent use.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]chan struct{}
	next   uint64
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan struct{})}
}

// Subscribe registers a new subscriber. The returned channel receives a
// value whenever Notify is called; notifications that arrive while one is
// already pending are merged. The cancel function removes the subscription
// and is safe to call more than once.
func (h *Hub) Subscribe() (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan struct{}, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Notify signals every subscriber without blocking.
func (h *Hub) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close ends every subscription. Live reads built on the hub close their
// output channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// LoadFunc runs the query behind a live read.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Watch starts a live read on h.
//
// The first load happens before Watch returns; its error, if any, is
// returned and no goroutine is started. Afterwards load runs once per
// notification. Failed reloads are passed to onErr (which may be nil) and
// the previous value stays current. The output channel is closed when ctx
// is done or the hub is closed.
func Watch[T any](ctx context.Context, h *Hub, load LoadFunc[T], onErr func(error)) (<-chan T, error) {
	sig, cancel := h.Subscribe()

	cur, err := load(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan T)
	go func() {
		defer close(out)
		defer cancel()

		pending := true
		for {
			var send chan<- T
			if pending {
				send = out
			}

			select {
			case send <- cur:
				pending = false

			case <-ctx.Done():
				return

			case _, ok := <-sig:
				if !ok {
					return
				}
				v, err := load(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					if onErr != nil {
						onErr(err)
					}
					continue
				}
				cur = v
				pending = true
			}
		}
	}()

	return out, nil
}

// Once returns a channel that delivers v and then closes. It is used by
// stores that only serve single snapshots.
func Once[T any](v T) <-chan T {
	ch := make(chan T, 1)
	ch <- v
	close(ch)
	return ch
}
