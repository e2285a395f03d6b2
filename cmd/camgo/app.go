package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/CamGo/internal/bridge"
	"github.com/cjeanneret/CamGo/internal/config"
	"github.com/cjeanneret/CamGo/internal/debug"
	"github.com/cjeanneret/CamGo/internal/hw/camera"
	"github.com/cjeanneret/CamGo/internal/hw/device"
	"github.com/cjeanneret/CamGo/internal/hw/gpio"
	"github.com/cjeanneret/CamGo/internal/logic/session"
)

// cleanupTimeout bounds the camera cleanup run at shutdown.
const cleanupTimeout = 5 * time.Second

// app holds the capabilities and the session built from one configuration.
type app struct {
	cfg *config.Config

	gpio    gpio.Driver // nil unless the camera is on GPIO
	cameras *bridge.Handle[camera.Camera]
	camera  *camera.Service
	devices *bridge.Handle[device.Provider]
	device  *device.Service
	session *session.Controller
}

// newApp wires the capabilities selected by cfg into a session controller.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		cameras: bridge.NewHandle[camera.Camera](),
		devices: bridge.NewHandle[device.Provider](),
	}

	debug.Step(1, "Initializing camera")
	if cfg.Camera.Type == config.CameraRemoteTrigger {
		debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
		g, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
		if err != nil {
			return nil, fmt.Errorf("init GPIO: %w", err)
		}
		a.gpio = g
	}
	cam, err := newCameraFromConfig(a.gpio, cfg)
	if err != nil {
		a.closeGPIO()
		return nil, err
	}
	if cam != nil {
		a.cameras.Register(cam)
	} else {
		debug.Info("Camera capability left for the native host to register")
	}
	debug.Value("Camera type", cfg.Camera.Type)
	a.camera = camera.NewService(a.cameras)

	debug.Step(2, "Initializing device info")
	if p := newDeviceFromConfig(cfg); p != nil {
		a.devices.Register(p)
	}
	a.device = device.NewService(a.devices)

	debug.Step(3, "Creating capture session")
	debug.PrintStruct("Capture options", cfg.Camera.Options)
	a.session = session.New(a.camera, cfg.SessionOptions()...)
	return a, nil
}

// close ends the session, lets the camera drop temporary files and
// releases GPIO lines.
func (a *app) close() error {
	a.session.Close()

	var errs []error
	if _, ok := a.cameras.Lookup(); ok {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		_, err := a.camera.Cleanup(ctx).Await(ctx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("camera cleanup: %w", err))
		}
	}
	if err := a.closeGPIO(); err != nil {
		errs = append(errs, err)
	}
	debug.Sync()
	return errors.Join(errs...)
}

func (a *app) closeGPIO() error {
	if a.gpio == nil {
		return nil
	}
	if err := a.gpio.Close(); err != nil {
		return fmt.Errorf("closing GPIO driver: %w", err)
	}
	return nil
}

// newCameraFromConfig selects a camera implementation based on configuration.
// The native type returns nil: a host process registers it at runtime.
func newCameraFromConfig(g gpio.Driver, cfg *config.Config) (camera.Camera, error) {
	switch cfg.Camera.Type {
	case config.CameraSimulated:
		return camera.NewSimulated(cfg.Latency(), cfg.Camera.FailWith), nil
	case config.CameraRemoteTrigger:
		if g == nil {
			return nil, errors.New("remote_trigger camera needs a GPIO driver")
		}
		debug.Value("Focus pin", cfg.Camera.FocusPin)
		debug.Value("Shutter pin", cfg.Camera.ShutterPin)
		return camera.NewRemoteTrigger(
			g,
			cfg.Camera.Name,
			cfg.Camera.FocusPin,
			cfg.Camera.ShutterPin,
			cfg.FocusDelay(),
			cfg.ShutterDelay(),
		), nil
	case config.CameraNative:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// newDeviceFromConfig returns the device-info provider, or nil for native.
func newDeviceFromConfig(cfg *config.Config) device.Provider {
	if cfg.Device.Type == config.DeviceSimulated {
		return device.NewSimulated()
	}
	return nil
}
