package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/CamGo/internal/bridge"
	"github.com/cjeanneret/CamGo/internal/debug"
	"github.com/cjeanneret/CamGo/internal/hw/camera"
	"github.com/cjeanneret/CamGo/internal/observe"
)

// CaptureSource requests one picture. camera.Service implements it.
type CaptureSource interface {
	Capture(ctx context.Context, opts camera.Options) *bridge.Future[string]
}

// Controller owns the captured snapshots and the active index.
// It sits between the presentation layer (which triggers captures and
// browsing) and the camera capability.
type Controller struct {
	source    CaptureSource
	sink      ErrorSink
	emptyList EmptyListPolicy
	overlap   OverlapPolicy
	now       func() time.Time
	newID     func() string

	optsMu sync.RWMutex
	opts   camera.Options

	state *observe.Subject[State]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex // guards closed and inFlight
	closed   bool
	inFlight int
}

// Option configures a Controller.
type Option func(*Controller)

// WithCaptureOptions sets the options used by Capture.
func WithCaptureOptions(opts camera.Options) Option {
	return func(c *Controller) { c.opts = opts }
}

// WithErrorSink sets where failures are reported. Defaults to LogSink.
func WithErrorSink(sink ErrorSink) Option {
	return func(c *Controller) { c.sink = sink }
}

// WithEmptyListPolicy sets the Next/Previous behaviour without snapshots.
func WithEmptyListPolicy(p EmptyListPolicy) Option {
	return func(c *Controller) { c.emptyList = p }
}

// WithOverlapPolicy sets whether captures may overlap.
func WithOverlapPolicy(p OverlapPolicy) Option {
	return func(c *Controller) { c.overlap = p }
}

// WithClock sets the time source for Snapshot.CapturedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator sets how snapshot ids are made. Defaults to random UUIDs.
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// New creates a controller with an empty session.
func New(source CaptureSource, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		source: source,
		sink:   LogSink{},
		now:    time.Now,
		newID:  uuid.NewString,
		opts:   camera.DefaultOptions(),
		state:  observe.NewSubject(emptyState()),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CaptureOptions returns the options the next Capture will use.
func (c *Controller) CaptureOptions() camera.Options {
	c.optsMu.RLock()
	defer c.optsMu.RUnlock()
	return c.opts
}

// SetCaptureOptions replaces the capture options. Pending captures keep the
// options they started with.
func (c *Controller) SetCaptureOptions(opts camera.Options) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid capture options: %w", err)
	}
	c.optsMu.Lock()
	c.opts = opts
	c.optsMu.Unlock()
	debug.PrintStruct("Session: capture options updated", opts)
	return nil
}

// Capture asks the camera for a picture. On success the snapshot is
// appended and becomes active, and observers see the new state before the
// returned future completes. On failure the state is left untouched, the
// error is reported to the sink and the future fails with it.
//
// Cancelling ctx, or the returned future, abandons the request; a result
// arriving later is dropped.
func (c *Controller) Capture(ctx context.Context) *bridge.Future[Snapshot] {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return bridge.FailedWith[Snapshot](ErrClosed)
	}
	if c.overlap == OverlapReject && c.inFlight > 0 {
		c.mu.Unlock()
		c.report("capture", ErrCaptureInProgress)
		return bridge.FailedWith[Snapshot](ErrCaptureInProgress)
	}
	c.inFlight++
	c.wg.Add(1)
	c.mu.Unlock()

	opts := c.CaptureOptions()
	reqCtx, cancel := context.WithCancel(c.ctx)
	stop := context.AfterFunc(ctx, cancel)

	debug.Live("Capture requested")
	req := c.source.Capture(reqCtx, opts)
	p := bridge.NewPromise[Snapshot]()

	// the capture stops counting as in flight before p settles, so a
	// caller awaiting it can start the next one right away
	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			c.mu.Lock()
			c.inFlight--
			c.mu.Unlock()
		})
	}

	go func() {
		defer c.wg.Done()
		defer release()
		defer cancel()
		defer stop()

		select {
		case <-req.Done():
		case <-p.Future().Done():
			// caller gave up
			req.Cancel()
			return
		case <-c.ctx.Done():
			req.Cancel()
			release()
			p.Cancel(fmt.Errorf("capture: %w", ErrClosed))
			return
		}

		raw, err := req.Result()
		if err != nil {
			release()
			c.captureFailed(p, err)
			return
		}

		snap := Snapshot{
			ID:         c.newID(),
			Reference:  camera.Reference(raw, opts),
			CapturedAt: c.now(),
		}
		st, err := c.state.Update(func(cur State) (State, error) {
			if c.ctx.Err() != nil {
				return cur, ErrClosed
			}
			return cur.appended(snap), nil
		})
		release()
		if err != nil {
			p.Cancel(fmt.Errorf("capture: %w", ErrClosed))
			return
		}

		debug.Shot(st.Active, st.Len(), snap.ID)
		p.Resolve(snap)
	}()

	return p.Future()
}

func (c *Controller) captureFailed(p *bridge.Promise[Snapshot], err error) {
	if errors.Is(err, bridge.ErrCancelled) {
		if c.ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ErrClosed, err)
		}
		debug.Verbose("Session: capture abandoned: %v", err)
		p.Cancel(err)
		return
	}
	c.report("capture", err)
	p.Reject(err)
}

// Next makes the following snapshot active, wrapping to the first.
func (c *Controller) Next() error {
	return c.rotate("next", 1)
}

// Previous makes the preceding snapshot active, wrapping to the last.
func (c *Controller) Previous() error {
	return c.rotate("previous", -1)
}

func (c *Controller) rotate(op string, delta int) error {
	st, err := c.state.Update(func(cur State) (State, error) {
		if c.ctx.Err() != nil {
			return cur, ErrClosed
		}
		if cur.Len() == 0 {
			return cur, ErrEmptyList
		}
		return cur.rotated(delta), nil
	})
	switch {
	case errors.Is(err, observe.ErrCompleted), errors.Is(err, ErrClosed):
		return ErrClosed
	case errors.Is(err, ErrEmptyList):
		if c.emptyList == EmptyListIgnore {
			debug.Verbose("Session: %s ignored, no snapshots", op)
			return nil
		}
		c.report(op, err)
		return err
	case err != nil:
		return err
	}
	debug.Live("Active snapshot %d/%d", st.Active+1, st.Len())
	return nil
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state.Value().Clone()
}

// Snapshots returns a copy of the captured snapshots.
func (c *Controller) Snapshots() []Snapshot {
	return c.State().Snapshots
}

// Active returns the active index, or NoIndex when empty.
func (c *Controller) Active() int {
	return c.state.Value().Active
}

// Current returns the active snapshot.
func (c *Controller) Current() (Snapshot, bool) {
	return c.state.Value().Current()
}

// Subscribe streams the current state and every later one. The channel is
// closed by Close; call the returned function to stop earlier.
func (c *Controller) Subscribe() (<-chan State, func()) {
	return c.state.Subscribe()
}

// Pending returns the number of captures waiting on the camera.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close abandons pending captures, waits for them to wind down and closes
// every subscription. Nothing changes afterwards. Safe to call twice.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.inFlight
	c.mu.Unlock()

	debug.Verbose("Session: closing (%d pending captures)", pending)
	c.cancel()
	c.wg.Wait()
	c.state.Complete()
}

func (c *Controller) report(op string, err error) {
	if c.sink != nil {
		c.sink.ReportError(op, err)
	}
}
