package feed

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrClosed             = errors.New("feed closed")
	ErrSubscriberExists   = errors.New("subscriber id already exists")
	ErrSubscriberNotFound = errors.New("subscriber id not found")
)

// Frame is one encoded presented frame.
type Frame struct {
	Seq      uint64
	CameraID int
	JPEG     []byte
	At       time.Time
}

// SubscriberStats counts deliveries to one subscriber.
type SubscriberStats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

type subscriber struct {
	ch      chan Frame
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Hub fans frames out to subscribers with a latest-only policy: each
// subscriber buffers one frame, and a newer frame replaces an unread one.
// Publish never blocks.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool

	published atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]*subscriber)}
}

// Subscribe returns a channel that yields the most recent frame. The
// channel is closed by Unsubscribe or Close.
func (h *Hub) Subscribe(id string) (<-chan Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if _, exists := h.subs[id]; exists {
		return nil, ErrSubscriberExists
	}
	s := &subscriber{ch: make(chan Frame, 1)}
	h.subs[id] = s
	return s.ch, nil
}

func (h *Hub) Unsubscribe(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	s, exists := h.subs[id]
	if !exists {
		return ErrSubscriberNotFound
	}
	delete(h.subs, id)
	close(s.ch)
	return nil
}

// Publish delivers f to every subscriber, displacing any unread frame.
// Publishing on a closed hub is a no-op.
func (h *Hub) Publish(f Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	h.published.Add(1)

	for _, s := range h.subs {
		for {
			select {
			case s.ch <- f:
				s.sent.Add(1)
			default:
				select {
				case <-s.ch:
					s.dropped.Add(1)
				default:
				}
				continue
			}
			break
		}
	}
}

func (h *Hub) Published() uint64 { return h.published.Load() }

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Stats(id string) (SubscriberStats, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, exists := h.subs[id]
	if !exists {
		return SubscriberStats{}, ErrSubscriberNotFound
	}
	return SubscriberStats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}, nil
}

// Close closes every subscriber channel. It is safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		close(s.ch)
		delete(h.subs, id)
	}
}
