package bridge

import (
	"context"
	"sync"
)

// State is the lifecycle position of a Future.
type State int32

const (
	Idle State = iota
	Requesting
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition can leave s.
func (s State) Terminal() bool {
	return s >= Completed
}

// Future is the single-shot result of a bridge request.
// It settles exactly once: with a value (Completed), an error (Failed) or
// ErrCancelled (Cancelled). Later settle attempts are ignored.
type Future[T any] struct {
	mu    sync.Mutex
	state State
	value T
	err   error
	done  chan struct{}

	// release stops the context watcher once the future is settled.
	release func() bool
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Succeeded returns a future already completed with v.
func Succeeded[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(Completed, v, nil)
	return f
}

// FailedWith returns a future already failed with err.
func FailedWith[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.settle(Failed, zero, err)
	return f
}

func (f *Future[T]) begin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Idle {
		return false
	}
	f.state = Requesting
	return true
}

// settle moves the future to a terminal state. It returns false if the
// future had already settled.
func (f *Future[T]) settle(state State, v T, err error) bool {
	f.mu.Lock()
	if f.state.Terminal() {
		f.mu.Unlock()
		return false
	}
	f.state = state
	f.value = v
	f.err = err
	release := f.release
	close(f.done)
	f.mu.Unlock()

	if release != nil {
		release()
	}
	return true
}

// Done is closed once the future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// State returns the current lifecycle state.
func (f *Future[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Result returns the outcome without blocking. Before the future settles
// it returns the zero value and a nil error; check State or Done first.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Await blocks until the future settles or ctx is done. A ctx expiring here
// does not cancel the request itself; use Cancel for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel settles a pending future as Cancelled. Any callback arriving
// afterwards is dropped. Cancelling a settled future does nothing.
func (f *Future[T]) Cancel() {
	var zero T
	f.settle(Cancelled, zero, ErrCancelled)
}
