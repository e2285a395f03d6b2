package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityUnavailable is returned when the native capability is not
	// registered in the host at call time.
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrCaptureFailed matches every failure reported by a native error callback.
	ErrCaptureFailed = errors.New("capture failed")

	// ErrCancelled is returned by a request cancelled before its callback fired.
	ErrCancelled = errors.New("request cancelled")
)

// CaptureError carries the message handed to a native error callback
// (user cancelled, permission denied, hardware error, ...).
type CaptureError struct {
	Message string
}

func (e *CaptureError) Error() string {
	if e.Message == "" {
		return ErrCaptureFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCaptureFailed, e.Message)
}

// Is reports whether target is ErrCaptureFailed.
func (e *CaptureError) Is(target error) bool {
	return target == ErrCaptureFailed
}
