package camera

import (
	"context"
	"fmt"

	"github.com/cjeanneret/CamGo/internal/bridge"
	"github.com/cjeanneret/CamGo/internal/debug"
)

// Camera is the native capture capability as exposed by the host
// (a mobile plugin, a tethered camera, a simulator). Both methods are
// callback based: the implementation calls exactly one of the callbacks,
// possibly from another goroutine.
type Camera interface {
	// GetPicture takes a photo (or lets the user pick one) and hands back
	// base64 data or a URI depending on opts.OutputFormat.
	GetPicture(opts Options, onSuccess func(image string), onError func(message string))

	// Cleanup removes intermediate image files kept in temporary storage
	// after FileReference captures.
	Cleanup(onSuccess func(), onError func(message string))
}

// Service turns the callback camera into single-shot futures.
type Service struct {
	handle *bridge.Handle[Camera]
}

// NewService creates a camera service over h. The camera may be registered
// in h later; until then requests fail with bridge.ErrCapabilityUnavailable.
func NewService(h *bridge.Handle[Camera]) *Service {
	return &Service{handle: h}
}

// Handle returns the capability handle the service looks cameras up in.
func (s *Service) Handle() *bridge.Handle[Camera] {
	return s.handle
}

// Capture requests one picture. Invalid options fail the future without
// touching the camera.
func (s *Service) Capture(ctx context.Context, opts Options) *bridge.Future[string] {
	if err := opts.Validate(); err != nil {
		return bridge.FailedWith[string](fmt.Errorf("invalid capture options: %w", err))
	}
	debug.PrintStruct("Camera: capture options", opts)
	return bridge.Request(ctx, "camera", s.handle, func(c Camera, onSuccess func(string), onError func(string)) {
		c.GetPicture(opts, onSuccess, onError)
	})
}

// Cleanup asks the camera to drop its temporary files.
func (s *Service) Cleanup(ctx context.Context) *bridge.Future[struct{}] {
	return bridge.Request(ctx, "camera cleanup", s.handle, func(c Camera, onSuccess func(struct{}), onError func(string)) {
		c.Cleanup(func() { onSuccess(struct{}{}) }, onError)
	})
}
