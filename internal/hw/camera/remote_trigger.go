package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/CamGo/internal/debug"
	"github.com/cjeanneret/CamGo/internal/hw/gpio"
)

// RemoteTrigger is a Camera that fires a tethered camera (e.g. a Nikon D90)
// through its 3-pin remote connector:
// - GND: connected to Raspberry Pi ground
// - FOCUS: autofocus (activate by setting to LOW)
// - SHUTTER: trigger (activate by setting to LOW)
//
// The image stays on the camera's card, so the only output format it can
// honour is NativeReference; the reference names the shot.
type RemoteTrigger struct {
	name         string
	gpio         gpio.Driver
	focusPin     int
	shutterPin   int
	focusDelay   time.Duration // time for autofocus
	shutterDelay time.Duration // shutter hold time

	// one shot at a time on the physical lines
	mu sync.Mutex
}

// NewRemoteTrigger configures both lines as outputs, released (HIGH).
func NewRemoteTrigger(g gpio.Driver, name string, focusPin, shutterPin int, focusDelay, shutterDelay time.Duration) *RemoteTrigger {
	_ = g.SetupPin(focusPin, gpio.Output)
	_ = g.SetupPin(shutterPin, gpio.Output)

	_ = g.WritePin(focusPin, gpio.High)
	_ = g.WritePin(shutterPin, gpio.High)

	return &RemoteTrigger{
		name:         name,
		gpio:         g,
		focusPin:     focusPin,
		shutterPin:   shutterPin,
		focusDelay:   focusDelay,
		shutterDelay: shutterDelay,
	}
}

// Shoot runs FOCUS -> wait for AF -> SHUTTER -> hold -> release.
func (r *RemoteTrigger) Shoot() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	debug.Verbose("Camera: triggering shot (focus=%d, shutter=%d)", r.focusPin, r.shutterPin)

	if err := r.gpio.WritePin(r.focusPin, gpio.Low); err != nil {
		return fmt.Errorf("activate focus: %w", err)
	}
	time.Sleep(r.focusDelay)

	if err := r.gpio.WritePin(r.shutterPin, gpio.Low); err != nil {
		_ = r.gpio.WritePin(r.focusPin, gpio.High)
		return fmt.Errorf("activate shutter: %w", err)
	}
	time.Sleep(r.shutterDelay)

	if err := r.gpio.WritePin(r.shutterPin, gpio.High); err != nil {
		return fmt.Errorf("release shutter: %w", err)
	}
	if err := r.gpio.WritePin(r.focusPin, gpio.High); err != nil {
		return fmt.Errorf("release focus: %w", err)
	}

	debug.Trace("Camera: shot triggered")
	return nil
}

func (r *RemoteTrigger) GetPicture(opts Options, onSuccess func(string), onError func(string)) {
	if opts.OutputFormat != NativeReference {
		onError(fmt.Sprintf("remote trigger only supports %s output, got %s", NativeReference, opts.OutputFormat))
		return
	}
	if opts.MediaKind == Video {
		onError("remote trigger cannot record video")
		return
	}
	go func() {
		if err := r.Shoot(); err != nil {
			onError(err.Error())
			return
		}
		onSuccess(fmt.Sprintf("remote://%s/%s", r.name, uuid.NewString()))
	}()
}

// Cleanup has nothing to remove: no file is stored on this side.
func (r *RemoteTrigger) Cleanup(onSuccess func(), _ func(string)) {
	onSuccess()
}
