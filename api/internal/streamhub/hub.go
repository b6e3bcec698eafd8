// Package streamhub implements the per-job/session subscription registry
// that fans broker results out to HTTP SSE clients.
package streamhub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lxp-platform/fabric/api/internal/domain"
)

// subscriptionCapacity is the bounded channel size per subscriber.
const subscriptionCapacity = 64

// Subscription is one SSE client's registration against a single filter
// (a job_id or a session_id).
type Subscription struct {
	Filter    string
	Ch        chan domain.Result
	CreatedAt time.Time

	seq atomic.Uint64
	lag atomic.Bool
}

// Lag reports whether this subscription has ever dropped a chunk. The
// flag is never reset once set.
func (s *Subscription) Lag() bool { return s.lag.Load() }

// Hub owns the subscription table: filter -> set of subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a new bounded-channel subscriber against filter and
// returns it along with a cancel function. cancel is idempotent.
func (h *Hub) Subscribe(filter string) (*Subscription, func()) {
	sub := &Subscription{
		Filter:    filter,
		Ch:        make(chan domain.Result, subscriptionCapacity),
		CreatedAt: time.Now(),
	}

	h.mu.Lock()
	set, ok := h.subs[filter]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[filter] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() { h.cancel(filter, sub) })
	}

	return sub, cancel
}

func (h *Hub) cancel(filter string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[filter]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, filter)
	}
}

// Publish delivers chunk to every subscriber of filter. It never blocks:
// a subscriber whose channel is full has its oldest pending chunk dropped
// (ring-buffer / drop-oldest policy) and is flagged lagging; the dropped
// chunk's slot is then reused for the new one. The caller assigns no seq;
// Hub stamps a monotone per-subscriber seq on delivery.
func (h *Hub) Publish(filter string, chunk domain.Result) {
	h.mu.RLock()
	set := h.subs[filter]
	// Copy the subscriber list out from under the lock so slow channel
	// sends below don't serialize with concurrent Subscribe/Cancel calls.
	subs := make([]*Subscription, 0, len(set))
	for s := range set {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		out := chunk
		out.Seq = sub.seq.Add(1)

		select {
		case sub.Ch <- out:
		default:
			// Slow consumer: drop the oldest pending chunk to make room.
			select {
			case <-sub.Ch:
			default:
			}
			sub.lag.Store(true)
			select {
			case sub.Ch <- out:
			default:
				// Still full (concurrent producer) — give up on this one.
			}
		}

		if out.Final && sub.lag.Load() {
			lagNotice := domain.Result{
				JobID:     chunk.JobID,
				SessionID: chunk.SessionID,
				Event:     domain.EventLag,
				Seq:       sub.seq.Add(1),
				Ts:        time.Now(),
			}
			select {
			case sub.Ch <- lagNotice:
			default:
				// Full: drop the oldest pending chunk so the notice still
				// lands directly behind the final one.
				select {
				case <-sub.Ch:
				default:
				}
				select {
				case sub.Ch <- lagNotice:
				default:
				}
			}
		}
	}
}

// Cancel removes sub from the hub. It is safe to call multiple times.
func (h *Hub) Cancel(sub *Subscription) {
	h.cancel(sub.Filter, sub)
}
