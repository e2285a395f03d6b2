package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/CamGo/internal/bridge"
	"github.com/cjeanneret/CamGo/internal/debug"
	"github.com/cjeanneret/CamGo/internal/hw/camera"
	"github.com/cjeanneret/CamGo/internal/hw/device"
	"github.com/cjeanneret/CamGo/internal/logic/session"
)

// maxBodyBytes caps request bodies (capture options are tiny).
const maxBodyBytes = 1 << 20

// heartbeatInterval keeps idle SSE connections open through proxies.
var heartbeatInterval = 30 * time.Second

// SessionController is the part of session.Controller the handlers use.
type SessionController interface {
	Capture(ctx context.Context) *bridge.Future[session.Snapshot]
	Next() error
	Previous() error
	State() session.State
	Subscribe() (<-chan session.State, func())
	CaptureOptions() camera.Options
	SetCaptureOptions(opts camera.Options) error
}

// DeviceLookup resolves the identity of the device the app runs on.
type DeviceLookup interface {
	Identity(ctx context.Context) *bridge.Future[*device.Identity]
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Session     SessionController
	Device      DeviceLookup
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If dev is nil, GET /api/device returns 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, sess SessionController, dev DeviceLookup, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Session:     sess,
		Device:      dev,
		staticFS:    staticFS,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Error(fmt.Errorf("web: encode response: %w", err))
	}
}

// statusFor maps session and capability errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bridge.ErrCapabilityUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, bridge.ErrCaptureFailed):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrCaptureInProgress), errors.Is(err, session.ErrEmptyList):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, bridge.ErrCancelled), errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

// ServeIndex serves the viewer page.
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleState returns the current snapshots and active index.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.State())
}

// HandleCapture handles POST /api/capture. It waits for the camera and
// answers with the new snapshot.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Session.Capture(r.Context()).Await(r.Context())
	if err != nil {
		h.Broadcaster.Broadcast("error", "Capture failed: "+err.Error())
		writeError(w, err)
		return
	}
	h.Broadcaster.Broadcast("info", "Captured "+snap.ID)
	writeJSON(w, http.StatusCreated, snap)
}

// HandleNext handles POST /api/next.
func (h *Handlers) HandleNext(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, h.Session.Next)
}

// HandlePrevious handles POST /api/previous.
func (h *Handlers) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, h.Session.Previous)
}

func (h *Handlers) navigate(w http.ResponseWriter, move func() error) {
	if err := move(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Session.State())
}

// HandleDevice returns the device identity.
func (h *Handlers) HandleDevice(w http.ResponseWriter, r *http.Request) {
	if h.Device == nil {
		writeError(w, fmt.Errorf("device: %w", bridge.ErrCapabilityUnavailable))
		return
	}
	id, err := h.Device.Identity(r.Context()).Await(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if id == nil {
		http.Error(w, "no device record", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// HandleConfig returns the capture options used by the next capture.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.CaptureOptions())
}

// HandleUpdateConfig handles PUT /api/config. Fields missing from the
// body keep their current value.
func (h *Handlers) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	opts := h.Session.CaptureOptions()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Session.SetCaptureOptions(opts); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Broadcaster.BroadcastMsg("Capture options updated")
	writeJSON(w, http.StatusOK, opts)
}

// sseStream prepares w for server-sent events. It returns nil when the
// writer cannot flush.
func sseStream(w http.ResponseWriter) http.Flusher {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()
	return flusher
}

// streamLoop forwards messages from ch until it closes or the client leaves.
func streamLoop[T any](w http.ResponseWriter, r *http.Request, flusher http.Flusher, ch <-chan T, encode func(T) ([]byte, error)) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			data, err := encode(msg)
			if err != nil {
				debug.Error(fmt.Errorf("web: encode event: %w", err))
				continue
			}
			w.Write([]byte("data: " + string(data) + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// HandleStateStream handles GET /api/state/stream: the current state
// first, then every change.
func (h *Handlers) HandleStateStream(w http.ResponseWriter, r *http.Request) {
	flusher := sseStream(w)
	if flusher == nil {
		return
	}
	ch, unsub := h.Session.Subscribe()
	defer unsub()

	streamLoop(w, r, flusher, ch, func(st session.State) ([]byte, error) {
		return json.Marshal(st)
	})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher := sseStream(w)
	if flusher == nil {
		return
	}
	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	streamLoop(w, r, flusher, ch, func(msg string) ([]byte, error) {
		return []byte(msg), nil
	})
}
