package bridge

import (
	"context"
	"sync"
)

// Handle holds a native capability that may not exist yet.
// The host registers the capability once it has finished initializing;
// until then every request made through the handle fails with
// ErrCapabilityUnavailable. A nil *Handle behaves as a handle that never
// becomes ready.
type Handle[C any] struct {
	mu         sync.RWMutex
	capability C
	present    bool

	readyInit sync.Once
	ready     chan struct{}
	readyOnce sync.Once
}

// NewHandle creates an empty handle. The zero Handle is ready to use too.
func NewHandle[C any]() *Handle[C] {
	return &Handle[C]{}
}

func (h *Handle[C]) readyChan() chan struct{} {
	h.readyInit.Do(func() { h.ready = make(chan struct{}) })
	return h.ready
}

// Resolved creates a handle with c already registered.
func Resolved[C any](c C) *Handle[C] {
	h := NewHandle[C]()
	h.Register(c)
	return h
}

// Register installs c. A nil interface value leaves the handle absent.
func (h *Handle[C]) Register(c C) {
	if any(c) == nil {
		h.Unregister()
		return
	}
	h.mu.Lock()
	h.capability = c
	h.present = true
	h.mu.Unlock()
	h.readyOnce.Do(func() { close(h.readyChan()) })
}

// Unregister removes the capability. Ready stays closed.
func (h *Handle[C]) Unregister() {
	h.mu.Lock()
	var zero C
	h.capability = zero
	h.present = false
	h.mu.Unlock()
}

// Lookup returns the capability if it is currently registered.
func (h *Handle[C]) Lookup() (C, bool) {
	if h == nil {
		var zero C
		return zero, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.capability, h.present
}

// Ready is closed the first time a capability is registered.
func (h *Handle[C]) Ready() <-chan struct{} {
	if h == nil {
		return nil
	}
	return h.readyChan()
}

// WaitReady blocks until a capability has been registered or ctx is done.
func (h *Handle[C]) WaitReady(ctx context.Context) error {
	select {
	case <-h.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
