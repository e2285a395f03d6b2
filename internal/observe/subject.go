package observe

import (
	"errors"
	"sync"
)

// ErrCompleted is returned when publishing to a completed subject.
var ErrCompleted = errors.New("subject completed")

// Subject holds a current value and pushes every change to subscribers.
//
// Subscriber channels hold one value and conflate: a slow subscriber skips
// intermediate values but always ends up with the latest one. Every value
// is published whole, so subscribers never see a partial update.
type Subject[T any] struct {
	mu        sync.Mutex
	value     T
	subs      map[chan T]struct{}
	completed bool
}

// NewSubject creates a subject holding initial.
func NewSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{
		value: initial,
		subs:  make(map[chan T]struct{}),
	}
}

// Value returns the current value.
func (s *Subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Publish replaces the current value and notifies subscribers.
func (s *Subject[T]) Publish(v T) error {
	_, err := s.Update(func(T) (T, error) { return v, nil })
	return err
}

// Update computes the next value from the current one and publishes it,
// atomically with respect to other updates. If fn returns an error nothing
// is published and the current value is returned with that error.
func (s *Subject[T]) Update(fn func(current T) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return s.value, ErrCompleted
	}
	next, err := fn(s.value)
	if err != nil {
		return s.value, err
	}
	s.value = next
	for ch := range s.subs {
		offer(ch, next)
	}
	return next, nil
}

// Subscribe returns a channel that first receives the current value, then
// later ones, and is closed on Complete. The caller must call the returned
// cleanup when done. Subscribing to a completed subject yields a closed
// channel.
func (s *Subject[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	ch <- s.value
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	unsub := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return ch, unsub
}

// Complete closes every subscriber channel and rejects further updates.
// Calling it again does nothing.
func (s *Subject[T]) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return
	}
	s.completed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}

// Completed reports whether Complete was called.
func (s *Subject[T]) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Subscribers returns the number of live subscriptions.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// offer delivers v, replacing an unread stale value. Callers hold s.mu so
// there is a single sender per channel.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
