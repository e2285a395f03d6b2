// Package mobile is the gomobile binding of the capture session. A host
// app registers its camera and device implementations, then drives the
// session and renders the state it publishes as JSON.
package mobile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cjeanneret/CamGo/internal/bridge"
	"github.com/cjeanneret/CamGo/internal/config"
	"github.com/cjeanneret/CamGo/internal/debug"
	"github.com/cjeanneret/CamGo/internal/hw/camera"
	"github.com/cjeanneret/CamGo/internal/hw/device"
	"github.com/cjeanneret/CamGo/internal/logic/session"
)

// cleanupTimeout bounds the camera cleanup run by Close.
const cleanupTimeout = 5 * time.Second

// CaptureListener receives the outcome of App.Capture.
type CaptureListener interface {
	OnCaptured(snapshotJSON string)
	OnFailed(message string)
}

// StateListener receives every published session state as JSON.
type StateListener interface {
	OnState(stateJSON string)
}

// App owns one capture session for the host app.
type App struct {
	cameras *bridge.Handle[camera.Camera]
	camera  *camera.Service
	devices *bridge.Handle[device.Provider]
	device  *device.Service
	session *session.Controller

	mu     sync.Mutex // guards closed and wg.Add against Close
	closed bool
	wg     sync.WaitGroup
}

// NewApp creates a session from a YAML configuration (the same format as
// the camgo config file; empty means defaults). Camera and device
// capabilities stay absent until the host registers them, except for
// the simulated types, which are registered right away.
func NewApp(configYAML string) (*App, error) {
	cfg, err := config.Parse([]byte(configYAML))
	if err != nil {
		return nil, err
	}
	debug.Init(cfg.Defaults.DebugLevel)

	a := &App{
		cameras: bridge.NewHandle[camera.Camera](),
		devices: bridge.NewHandle[device.Provider](),
	}
	switch cfg.Camera.Type {
	case config.CameraSimulated:
		a.cameras.Register(camera.NewSimulated(cfg.Latency(), cfg.Camera.FailWith))
	case config.CameraNative:
	default:
		return nil, fmt.Errorf("camera type %s is not available on mobile", cfg.Camera.Type)
	}
	if cfg.Device.Type == config.DeviceSimulated {
		a.devices.Register(device.NewSimulated())
	}

	a.camera = camera.NewService(a.cameras)
	a.device = device.NewService(a.devices)
	a.session = session.New(a.camera, cfg.SessionOptions()...)
	return a, nil
}

// RegisterCamera installs the host camera. Call it once the platform
// reports the device ready.
func (a *App) RegisterCamera(c NativeCamera) {
	if c == nil {
		a.cameras.Unregister()
		return
	}
	a.cameras.Register(nativeCamera{native: c})
	debug.Info("Mobile: camera registered")
}

// UnregisterCamera removes the host camera; captures then fail as unavailable.
func (a *App) UnregisterCamera() {
	a.cameras.Unregister()
}

// RegisterDevice installs the host device-info provider.
func (a *App) RegisterDevice(d NativeDevice) {
	if d == nil {
		a.devices.Unregister()
		return
	}
	a.devices.Register(nativeDevice{native: d})
}

// Capture takes a picture without blocking the caller. The listener is
// called exactly once, after observers have seen the new state. After
// Close it is called right away with the closed error.
func (a *App) Capture(l CaptureListener) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		if l != nil {
			l.OnFailed(session.ErrClosed.Error())
		}
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	f := a.session.Capture(context.Background())
	go func() {
		defer a.wg.Done()
		<-f.Done()
		snap, err := f.Result()
		if l == nil {
			return
		}
		if err != nil {
			l.OnFailed(err.Error())
			return
		}
		data, err := json.Marshal(snap)
		if err != nil {
			l.OnFailed(err.Error())
			return
		}
		l.OnCaptured(string(data))
	}()
}

// Next shows the following snapshot, wrapping to the first.
func (a *App) Next() error {
	return a.session.Next()
}

// Previous shows the preceding snapshot, wrapping to the last.
func (a *App) Previous() error {
	return a.session.Previous()
}

// StateJSON returns the current snapshots and active index.
func (a *App) StateJSON() (string, error) {
	data, err := json.Marshal(a.session.State())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// OptionsJSON returns the options used by the next capture.
func (a *App) OptionsJSON() (string, error) {
	data, err := json.Marshal(a.session.CaptureOptions())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetOptionsJSON updates the capture options. Keys missing from the JSON
// keep their current value.
func (a *App) SetOptionsJSON(optionsJSON string) error {
	opts := a.session.CaptureOptions()
	if err := json.Unmarshal([]byte(optionsJSON), &opts); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return a.session.SetCaptureOptions(opts)
}

// DeviceJSON looks up the device identity. It blocks until the provider
// answers and returns an empty string when the host has no record.
func (a *App) DeviceJSON() (string, error) {
	ctx := context.Background()
	id, err := a.device.Identity(ctx).Await(ctx)
	if err != nil {
		return "", err
	}
	if id == nil {
		return "", nil
	}
	data, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Subscription stops a Watch.
type Subscription struct {
	stop func()
	done chan struct{}
}

// Cancel stops delivery and waits for the listener to return. Do not
// call it from inside OnState.
func (s *Subscription) Cancel() {
	s.stop()
	<-s.done
}

// Watch calls l with the current state, then with every change, from a
// background goroutine. Delivery ends on Cancel or Close.
func (a *App) Watch(l StateListener) (*Subscription, error) {
	if l == nil {
		return nil, errors.New("nil state listener")
	}
	ch, unsub := a.session.Subscribe()
	sub := &Subscription{stop: unsub, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for st := range ch {
			data, err := json.Marshal(st)
			if err != nil {
				debug.Error(fmt.Errorf("mobile: encode state: %w", err))
				continue
			}
			l.OnState(string(data))
		}
	}()
	return sub, nil
}

// Close ends the session, waits for pending listeners and asks the
// camera to remove its temporary files.
func (a *App) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	a.session.Close()
	a.wg.Wait()

	if _, ok := a.cameras.Lookup(); !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	_, err := a.camera.Cleanup(ctx).Await(ctx)
	return err
}
