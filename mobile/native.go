package mobile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cjeanneret/CamGo/internal/hw/camera"
	"github.com/cjeanneret/CamGo/internal/hw/device"
)

// NativeCamera is implemented by the host (Swift/Kotlin) on top of the
// platform camera.
//
// Rules for gomobile compatibility:
//   - methods may only use primitive types, strings, []byte, or other
//     gomobile-bound types as parameters and return values
//   - options cross as JSON (see camera.Options for the keys)
//   - exactly one callback method must be called per request
type NativeCamera interface {
	// GetPicture takes or selects a picture and answers through cb.
	GetPicture(optionsJSON string, cb PictureCallback)

	// Cleanup removes temporary files left by previous pictures.
	Cleanup(cb CleanupCallback)
}

// PictureCallback receives the outcome of NativeCamera.GetPicture.
type PictureCallback interface {
	OnSuccess(reference string)
	OnError(message string)
}

// CleanupCallback receives the outcome of NativeCamera.Cleanup.
type CleanupCallback interface {
	OnSuccess()
	OnError(message string)
}

// NativeDevice is implemented by the host to describe the device.
type NativeDevice interface {
	// DeviceJSON returns the identity as JSON (see device.Identity for
	// the keys), or an empty string when the host has no record.
	DeviceJSON() (string, error)
}

// nativeCamera adapts a NativeCamera to camera.Camera.
type nativeCamera struct {
	native NativeCamera
}

func (n nativeCamera) GetPicture(opts camera.Options, onSuccess func(string), onError func(string)) {
	data, err := json.Marshal(opts)
	if err != nil {
		onError(fmt.Sprintf("encode options: %v", err))
		return
	}
	n.native.GetPicture(string(data), pictureCallback{onSuccess: onSuccess, onError: onError})
}

func (n nativeCamera) Cleanup(onSuccess func(), onError func(string)) {
	n.native.Cleanup(cleanupCallback{onSuccess: onSuccess, onError: onError})
}

type pictureCallback struct {
	onSuccess func(string)
	onError   func(string)
}

func (c pictureCallback) OnSuccess(reference string) { c.onSuccess(reference) }
func (c pictureCallback) OnError(message string)     { c.onError(message) }

type cleanupCallback struct {
	onSuccess func()
	onError   func(string)
}

func (c cleanupCallback) OnSuccess()             { c.onSuccess() }
func (c cleanupCallback) OnError(message string) { c.onError(message) }

// nativeDevice adapts a NativeDevice to device.Provider.
type nativeDevice struct {
	native NativeDevice
}

func (n nativeDevice) Device() (*device.Identity, error) {
	data, err := n.native.DeviceJSON()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(data) == "" {
		return nil, nil
	}
	var id device.Identity
	if err := json.Unmarshal([]byte(data), &id); err != nil {
		return nil, fmt.Errorf("decode device identity: %w", err)
	}
	return &id, nil
}
