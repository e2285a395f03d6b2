package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capability interface {
	Name() string
}

type namedCapability string

func (n namedCapability) Name() string { return string(n) }

func TestHandle_LateRegistration(t *testing.T) {
	h := NewHandle[capability]()

	_, ok := h.Lookup()
	assert.False(t, ok)

	select {
	case <-h.Ready():
		t.Fatal("handle should not be ready before registration")
	default:
	}

	h.Register(namedCapability("camera"))

	c, ok := h.Lookup()
	require.True(t, ok)
	assert.Equal(t, "camera", c.Name())
	require.NoError(t, h.WaitReady(context.Background()))
}

func TestHandle_RegisterNilInterface(t *testing.T) {
	h := NewHandle[capability]()
	h.Register(nil)
	_, ok := h.Lookup()
	assert.False(t, ok)
}

func TestHandle_Unregister(t *testing.T) {
	h := Resolved[capability](namedCapability("camera"))
	h.Unregister()

	_, ok := h.Lookup()
	assert.False(t, ok)
	// readiness is sticky
	require.NoError(t, h.WaitReady(context.Background()))
}

func TestHandle_WaitReadyTimeout(t *testing.T) {
	h := NewHandle[capability]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.WaitReady(ctx), context.DeadlineExceeded)
}

func TestHandle_RegisterUnblocksWaiter(t *testing.T) {
	h := NewHandle[capability]()
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.WaitReady(context.Background())
	}()

	h.Register(namedCapability("device"))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ready")
	}
}

func TestHandle_ZeroValue(t *testing.T) {
	var h Handle[capability]
	select {
	case <-h.Ready():
		t.Fatal("zero handle must not be ready")
	default:
	}

	h.Register(namedCapability("camera"))

	c, ok := h.Lookup()
	require.True(t, ok)
	assert.Equal(t, namedCapability("camera"), c)
	require.NoError(t, h.WaitReady(context.Background()))
}
