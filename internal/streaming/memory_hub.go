package streaming

import (
	"context"
	"sync"
	"time"
)

const defaultBuffer = 64

// Option configures a MemoryHub.
type Option func(*MemoryHub)

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(n int) Option {
	return func(h *MemoryHub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithDropHook is called for every event a full subscriber misses.
func WithDropHook(fn func(StreamEvent)) Option {
	return func(h *MemoryHub) { h.onDrop = fn }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(h *MemoryHub) { h.now = now }
}

type subscription struct {
	id     uint64
	ch     chan StreamEvent
	filter EventFilter
	once   sync.Once
}

// MemoryHub is the in-process EventHub. The editor publishes to it; the SSE
// endpoint and the MCP notifier subscribe. Slow subscribers lose events
// rather than stall the editor.
type MemoryHub struct {
	buffer int
	onDrop func(StreamEvent)
	now    func() time.Time

	mu     sync.RWMutex
	seq    uint64
	nextID uint64
	subs   map[uint64]*subscription
}

func NewMemoryHub(opts ...Option) *MemoryHub {
	h := &MemoryHub{
		buffer: defaultBuffer,
		now:    time.Now,
		subs:   make(map[uint64]*subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish stamps the event with the next sequence number and delivers it to
// every matching subscriber without blocking.
func (h *MemoryHub) Publish(ctx context.Context, event StreamEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The write lock orders sequence numbers with delivery, so every
	// subscriber sees a strictly increasing Seq.
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	event.Seq = h.seq
	if event.At.IsZero() {
		event.At = h.now().UTC()
	}

	for _, sub := range h.subs {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			if h.onDrop != nil {
				h.onDrop(event)
			}
		}
	}
	return nil
}

// Subscribe registers a filtered subscription. It ends when cancel is called
// or ctx is done, whichever comes first; either way the channel is closed.
func (h *MemoryHub) Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	h.mu.Lock()
	h.nextID++
	sub := &subscription{
		id:     h.nextID,
		ch:     make(chan StreamEvent, h.buffer),
		filter: filter,
	}
	h.subs[sub.id] = sub
	h.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { h.end(sub) })
	cancel := func() {
		stop()
		h.end(sub)
	}
	return sub.ch, cancel, nil
}

func (h *MemoryHub) end(sub *subscription) {
	sub.once.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, sub.id)
		close(sub.ch)
	})
}

// Subscribers returns the number of live subscriptions.
func (h *MemoryHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *MemoryHub) Close() {
	h.mu.RLock()
	subs := make([]*subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		h.end(sub)
	}
}
