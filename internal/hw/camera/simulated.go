package camera

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cjeanneret/CamGo/internal/debug"
)

const (
	simulatedWidth  = 64
	simulatedHeight = 48
)

// Simulated is a Camera for development on a PC or for tests.
// It renders a small gradient test card per capture and answers
// asynchronously after Latency.
type Simulated struct {
	// Latency delays each answer (user framing the shot, shutter, ...).
	Latency time.Duration
	// FailWith, when non-empty, makes every capture fail with this message.
	FailWith string

	mu      sync.Mutex
	shots   int
	tempDir string
}

// NewSimulated creates a simulated camera.
func NewSimulated(latency time.Duration, failWith string) *Simulated {
	return &Simulated{Latency: latency, FailWith: failWith}
}

// Shots returns how many pictures were requested.
func (s *Simulated) Shots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shots
}

func (s *Simulated) GetPicture(opts Options, onSuccess func(string), onError func(string)) {
	s.mu.Lock()
	s.shots++
	shot := s.shots
	s.mu.Unlock()

	debug.Trace("Camera (sim): shot %d requested", shot)
	time.AfterFunc(s.Latency, func() {
		if s.FailWith != "" {
			onError(s.FailWith)
			return
		}
		ref, err := s.render(shot, opts)
		if err != nil {
			onError(err.Error())
			return
		}
		onSuccess(ref)
	})
}

func (s *Simulated) Cleanup(onSuccess func(), onError func(string)) {
	s.mu.Lock()
	dir := s.tempDir
	s.tempDir = ""
	s.mu.Unlock()

	if dir == "" {
		onSuccess()
		return
	}
	debug.Verbose("Camera (sim): removing %s", dir)
	if err := os.RemoveAll(dir); err != nil {
		onError(err.Error())
		return
	}
	onSuccess()
}

// TempDir returns the directory holding FileReference captures, if any.
func (s *Simulated) TempDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tempDir
}

func (s *Simulated) render(shot int, opts Options) (string, error) {
	if opts.MediaKind == Video {
		return "", fmt.Errorf("video capture not supported by simulated camera")
	}
	if opts.OutputFormat == NativeReference {
		return fmt.Sprintf("sim://snapshot/%d", shot), nil
	}

	data, err := testCard(shot, opts)
	if err != nil {
		return "", err
	}

	if opts.OutputFormat == InlineData {
		return base64.StdEncoding.EncodeToString(data), nil
	}

	dir, err := s.ensureTempDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("snapshot-%04d.%s", shot, opts.Encoding))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return "file://" + filepath.ToSlash(path), nil
}

func (s *Simulated) ensureTempDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tempDir != "" {
		return s.tempDir, nil
	}
	dir, err := os.MkdirTemp("", "camgo-sim-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	s.tempDir = dir
	return dir, nil
}

// testCard draws a gradient whose tint changes with each shot so snapshots
// can be told apart when browsing.
func testCard(shot int, opts Options) ([]byte, error) {
	w, h := simulatedWidth, simulatedHeight
	if opts.HasTargetSize() {
		w, h = opts.TargetWidth, opts.TargetHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	tint := uint8((shot * 53) % 256)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: tint,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	switch opts.Encoding {
	case PNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	default:
		q := opts.Quality
		if q < 1 {
			q = 1
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	}
	return buf.Bytes(), nil
}
