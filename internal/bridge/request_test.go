package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeCapability captures the callbacks so tests decide when and how the
// native side answers.
type fakeCapability struct {
	mu        sync.Mutex
	calls     int
	options   []string
	onSuccess func(string)
	onError   func(string)
}

func (c *fakeCapability) invoke(opts string) InvokeFunc[*fakeCapability, string] {
	return func(fc *fakeCapability, onSuccess func(string), onError func(string)) {
		fc.mu.Lock()
		defer fc.mu.Unlock()
		fc.calls++
		fc.options = append(fc.options, opts)
		fc.onSuccess = onSuccess
		fc.onError = onError
	}
}

func (c *fakeCapability) succeed(v string) {
	c.mu.Lock()
	cb := c.onSuccess
	c.mu.Unlock()
	cb(v)
}

func (c *fakeCapability) fail(msg string) {
	c.mu.Lock()
	cb := c.onError
	c.mu.Unlock()
	cb(msg)
}

func (c *fakeCapability) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestRequest_CapabilityAbsent(t *testing.T) {
	h := NewHandle[*fakeCapability]()
	invoked := false

	f := Request(context.Background(), "camera", h, func(*fakeCapability, func(string), func(string)) {
		invoked = true
	})

	assert.False(t, invoked, "invoke must not run without a capability")
	assert.Equal(t, Failed, f.State())
	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
}

func TestRequest_NilHandle(t *testing.T) {
	var h *Handle[*fakeCapability]
	f := Request(context.Background(), "camera", h, func(*fakeCapability, func(string), func(string)) {})
	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
}

func TestRequest_Success(t *testing.T) {
	fc := &fakeCapability{}
	f := Request(context.Background(), "camera", Resolved(fc), fc.invoke("opts"))

	assert.Equal(t, Requesting, f.State())
	assert.Equal(t, 1, fc.callCount())
	assert.Equal(t, []string{"opts"}, fc.options)

	fc.succeed("image")

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "image", v)
	assert.Equal(t, Completed, f.State())
}

func TestRequest_Error(t *testing.T) {
	fc := &fakeCapability{}
	f := Request(context.Background(), "camera", Resolved(fc), fc.invoke(""))

	fc.fail("permission denied")

	v, err := f.Await(context.Background())
	assert.Empty(t, v)
	assert.ErrorIs(t, err, ErrCaptureFailed)
	var ce *CaptureError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "permission denied", ce.Message)
	assert.Equal(t, Failed, f.State())
}

func TestRequest_SingleOutcome(t *testing.T) {
	cases := []struct {
		name   string
		answer func(c *fakeCapability)
		want   State
	}{
		{"success_then_error", func(c *fakeCapability) { c.succeed("a"); c.fail("late") }, Completed},
		{"error_then_success", func(c *fakeCapability) { c.fail("boom"); c.succeed("late") }, Failed},
		{"double_success", func(c *fakeCapability) { c.succeed("a"); c.succeed("b") }, Completed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := &fakeCapability{}
			f := Request(context.Background(), "camera", Resolved(fc), fc.invoke(""))
			tc.answer(fc)

			assert.Equal(t, tc.want, f.State())
			v, err := f.Result()
			if tc.want == Completed {
				assert.NoError(t, err)
				assert.Equal(t, "a", v)
			} else {
				assert.Error(t, err)
				assert.Empty(t, v)
			}
		})
	}
}

func TestRequest_CancelSuppressesLateResult(t *testing.T) {
	fc := &fakeCapability{}
	f := Request(context.Background(), "camera", Resolved(fc), fc.invoke(""))

	f.Cancel()
	fc.succeed("too late")

	v, err := f.Result()
	assert.Empty(t, v)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, Cancelled, f.State())
}

func TestRequest_ContextCancel(t *testing.T) {
	fc := &fakeCapability{}
	ctx, cancel := context.WithCancel(context.Background())
	f := Request(ctx, "camera", Resolved(fc), fc.invoke(""))

	cancel()

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for cancellation")
	}
	fc.fail("too late")

	_, err := f.Result()
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Cancelled, f.State())
}

func TestRequest_ContextAlreadyCancelled(t *testing.T) {
	fc := &fakeCapability{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := Request(ctx, "camera", Resolved(fc), fc.invoke(""))

	assert.Equal(t, 0, fc.callCount())
	assert.Equal(t, Cancelled, f.State())
}

func TestRequest_InvokeCalledOncePerRequest(t *testing.T) {
	fc := &fakeCapability{}
	h := Resolved(fc)
	for i := 0; i < 3; i++ {
		f := Request(context.Background(), "camera", h, fc.invoke(""))
		fc.succeed("x")
		_, err := f.Await(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fc.callCount())
}

func TestRequest_SynchronousCallback(t *testing.T) {
	h := Resolved(&fakeCapability{})
	f := Request(context.Background(), "camera", h, func(_ *fakeCapability, onSuccess func(string), _ func(string)) {
		onSuccess("now")
	})
	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, "now", v)
}

func TestRequest_PanicBecomesFailure(t *testing.T) {
	h := Resolved(&fakeCapability{})
	f := Request(context.Background(), "camera", h, func(*fakeCapability, func(string), func(string)) {
		panic("native crash")
	})
	_, err := f.Result()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "native crash")
	assert.Equal(t, Failed, f.State())
}

func TestRequest_ConcurrentCallbacks(t *testing.T) {
	fc := &fakeCapability{}
	f := Request(context.Background(), "camera", Resolved(fc), fc.invoke(""))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				fc.succeed("v")
			} else {
				fc.fail("e")
			}
		}(i)
	}
	f.Cancel()
	wg.Wait()

	v, err := f.Result()
	assert.True(t, f.State().Terminal())
	// exactly one of value or error is set
	assert.NotEqual(t, v != "", err != nil)
}

func TestAwait_ContextExpires(t *testing.T) {
	fc := &fakeCapability{}
	f := Request(context.Background(), "camera", Resolved(fc), fc.invoke(""))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Requesting, f.State(), "Await timeout must not cancel the request")

	fc.succeed("late but fine")
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late but fine", v)
}

func TestPreSettledFutures(t *testing.T) {
	ok := Succeeded(42)
	v, err := ok.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	bad := FailedWith[int](boom)
	_, err = bad.Await(context.Background())
	assert.ErrorIs(t, err, boom)
	bad.Cancel()
	assert.Equal(t, Failed, bad.State(), "terminal state is final")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "requesting", Requesting.String())
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "cancelled", Cancelled.String())
	assert.False(t, Requesting.Terminal())
	assert.True(t, Cancelled.Terminal())
}

func TestPromise(t *testing.T) {
	p := NewPromise[string]()
	f := p.Future()
	assert.Equal(t, Requesting, f.State())

	assert.True(t, p.Resolve("done"))
	assert.False(t, p.Reject(errors.New("late")))
	assert.False(t, p.Cancel(nil))

	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestPromise_CancelDefaultsError(t *testing.T) {
	p := NewPromise[int]()
	assert.True(t, p.Cancel(nil))
	_, err := p.Future().Result()
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, Cancelled, p.Future().State())
}

func TestPromise_ConsumerCancel(t *testing.T) {
	p := NewPromise[int]()
	p.Future().Cancel()
	assert.False(t, p.Resolve(1), "producer result dropped after consumer cancel")
}
