package device

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/CamGo/internal/bridge"
)

type failingProvider struct{}

func (failingProvider) Device() (*Identity, error) {
	return nil, errors.New("plugin not initialized")
}

// slowProvider blocks until released so concurrent lookups overlap.
type slowProvider struct {
	calls   atomic.Int32
	release chan struct{}
}

func (p *slowProvider) Device() (*Identity, error) {
	p.calls.Add(1)
	<-p.release
	return &Identity{Model: "Pixel"}, nil
}

func TestIdentity_Unavailable(t *testing.T) {
	svc := NewService(bridge.NewHandle[Provider]())
	_, err := svc.Identity(context.Background()).Await(context.Background())
	assert.ErrorIs(t, err, bridge.ErrCapabilityUnavailable)
}

func TestIdentity_Static(t *testing.T) {
	want := &Identity{Model: "iPhone", PlatformName: "iOS", InstanceID: "abc"}
	svc := NewService(bridge.Resolved[Provider](Static{Identity: want}))

	got, err := svc.Identity(context.Background()).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIdentity_NoRecord(t *testing.T) {
	svc := NewService(bridge.Resolved[Provider](Static{}))
	got, err := svc.Identity(context.Background()).Await(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, "<no device>", got.String())
}

func TestIdentity_ProviderError(t *testing.T) {
	svc := NewService(bridge.Resolved[Provider](failingProvider{}))
	_, err := svc.Identity(context.Background()).Await(context.Background())
	assert.ErrorIs(t, err, bridge.ErrCaptureFailed)
	assert.Contains(t, err.Error(), "plugin not initialized")
}

func TestIdentity_ConcurrentLookupsShareCall(t *testing.T) {
	p := &slowProvider{release: make(chan struct{})}
	svc := NewService(bridge.Resolved[Provider](p))

	var wg sync.WaitGroup
	results := make([]*Identity, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := svc.Identity(context.Background()).Await(context.Background())
			assert.NoError(t, err)
			results[i] = id
		}(i)
	}

	// give every goroutine time to join the in-flight lookup
	time.Sleep(20 * time.Millisecond)
	close(p.release)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	for _, id := range results {
		require.NotNil(t, id)
		assert.Equal(t, "Pixel", id.Model)
	}
}

func TestSimulated_StableIdentity(t *testing.T) {
	sim := NewSimulated()
	a, err := sim.Device()
	require.NoError(t, err)
	b, err := sim.Device()
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotSame(t, a, b, "callers get copies")
	assert.True(t, a.IsEmulated)
	assert.Equal(t, runtime.GOOS, a.PlatformName)
	assert.NotEmpty(t, a.InstanceID)
}

func TestIdentityString(t *testing.T) {
	id := &Identity{Manufacturer: "Google", Model: "Pixel 8", PlatformName: "Android", OSVersion: "14", InstanceID: "x", IsEmulated: true}
	assert.Equal(t, "Google Pixel 8 Android 14 [x] (emulated)", id.String())
}
