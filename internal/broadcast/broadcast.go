// Package broadcast provides the bounded fan-out channel each session role
// listens on. Publishing never blocks: a subscriber whose buffer is full loses
// its oldest unread message to make room for the new one.
package broadcast

import (
	"sync"
	"sync/atomic"
)

type Broadcaster[T any] struct {
	mu       sync.Mutex
	subs     map[uint64]*Subscription[T]
	nextID   uint64
	capacity int
	closed   bool
}

type Subscription[T any] struct {
	ch      chan T
	id      uint64
	b       *Broadcaster[T]
	dropped atomic.Uint64
}

func New[T any](capacity int) *Broadcaster[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Broadcaster[T]{
		subs:     make(map[uint64]*Subscription[T]),
		capacity: capacity,
	}
}

// Subscribe registers a new receiver. Subscribing to a closed broadcaster
// yields an already-closed channel.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Subscription[T]{ch: make(chan T, b.capacity), b: b}
	if b.closed {
		close(s.ch)
		return s
	}
	s.id = b.nextID
	b.nextID++
	b.subs[s.id] = s
	return s
}

// Publish delivers msg to every current subscriber and reports how many there
// were. Messages published after Close are discarded.
func (b *Broadcaster[T]) Publish(msg T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}
	for _, s := range b.subs {
		select {
		case s.ch <- msg:
			continue
		default:
		}
		// Full: evict the oldest. Only publishers send and they hold mu, so
		// the second send always has room.
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
		select {
		case s.ch <- msg:
		default:
			s.dropped.Add(1)
		}
	}
	return len(b.subs)
}

// Close closes every subscriber channel. Buffered messages are still
// delivered before receivers observe the close.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}

func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (s *Subscription[T]) C() <-chan T { return s.ch }

// Dropped counts messages this subscriber lost to backpressure.
func (s *Subscription[T]) Dropped() uint64 { return s.dropped.Load() }

// Close unsubscribes. It is safe to call more than once and after the
// broadcaster itself has closed.
func (s *Subscription[T]) Close() {
	b := s.b
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.subs[s.id]; ok && cur == s {
		delete(b.subs, s.id)
		close(s.ch)
	}
}
