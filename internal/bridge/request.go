package bridge

import (
	"context"
	"fmt"

	"github.com/cjeanneret/CamGo/internal/debug"
)

// InvokeFunc calls a callback-style native operation on capability c.
// The implementation must eventually call exactly one of onSuccess or
// onError; extra calls are ignored.
type InvokeFunc[C, T any] func(c C, onSuccess func(T), onError func(message string))

// Request adapts one callback-style native call into a Future.
//
// The capability is looked up in h when Request is called. If it is absent
// the future fails with ErrCapabilityUnavailable and invoke is never called.
// Otherwise invoke runs exactly once. Cancelling ctx, or calling Cancel on the
// returned future, before a callback fires settles the future as Cancelled
// and suppresses whatever the native side reports later.
func Request[C, T any](ctx context.Context, name string, h *Handle[C], invoke InvokeFunc[C, T]) *Future[T] {
	f := newFuture[T]()
	var zero T

	c, ok := h.Lookup()
	if !ok {
		debug.Verbose("Bridge: %s not available", name)
		f.settle(Failed, zero, fmt.Errorf("%s: %w", name, ErrCapabilityUnavailable))
		return f
	}

	if err := ctx.Err(); err != nil {
		f.settle(Cancelled, zero, fmt.Errorf("%s: %w: %w", name, ErrCancelled, context.Cause(ctx)))
		return f
	}

	f.begin()
	stop := context.AfterFunc(ctx, func() {
		if f.settle(Cancelled, zero, fmt.Errorf("%s: %w: %w", name, ErrCancelled, context.Cause(ctx))) {
			debug.Verbose("Bridge: %s cancelled", name)
		}
	})
	f.mu.Lock()
	f.release = stop
	settled := f.state.Terminal()
	f.mu.Unlock()
	if settled {
		stop()
	}

	onSuccess := func(v T) {
		if f.settle(Completed, v, nil) {
			debug.Trace("Bridge: %s succeeded", name)
		} else {
			debug.Trace("Bridge: %s late success dropped (%s)", name, f.State())
		}
	}
	onError := func(message string) {
		if f.settle(Failed, zero, &CaptureError{Message: message}) {
			debug.Verbose("Bridge: %s failed: %s", name, message)
		} else {
			debug.Trace("Bridge: %s late error dropped (%s)", name, f.State())
		}
	}

	debug.Verbose("Bridge: invoking %s", name)
	func() {
		defer func() {
			if r := recover(); r != nil {
				f.settle(Failed, zero, fmt.Errorf("%s: bridge call panicked: %v", name, r))
			}
		}()
		invoke(c, onSuccess, onError)
	}()

	return f
}
