package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cjeanneret/CamGo/internal/debug"
)

var (
	// ErrEmptyList is returned by Next and Previous on an empty session
	// when the empty-list policy is EmptyListError.
	ErrEmptyList = errors.New("no snapshots captured")

	// ErrClosed is returned once the controller has been closed.
	ErrClosed = errors.New("session closed")

	// ErrCaptureInProgress is returned by Capture under OverlapReject while
	// another capture is still pending.
	ErrCaptureInProgress = errors.New("capture already in progress")
)

// ErrorSink receives every failure the controller reports.
type ErrorSink interface {
	ReportError(op string, err error)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(op string, err error)

func (f ErrorSinkFunc) ReportError(op string, err error) { f(op, err) }

// LogSink reports errors through the debug logger.
type LogSink struct{}

func (LogSink) ReportError(op string, err error) {
	debug.Error(fmt.Errorf("session %s: %w", op, err))
}

// EmptyListPolicy decides what Next and Previous do without snapshots.
type EmptyListPolicy int

const (
	// EmptyListError returns and reports ErrEmptyList.
	EmptyListError EmptyListPolicy = iota
	// EmptyListIgnore makes navigation a no-op.
	EmptyListIgnore
)

func (p EmptyListPolicy) String() string {
	if p == EmptyListIgnore {
		return "ignore"
	}
	return "error"
}

func (p EmptyListPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *EmptyListPolicy) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "error":
		*p = EmptyListError
	case "ignore", "noop":
		*p = EmptyListIgnore
	default:
		return fmt.Errorf("unknown empty list policy %q (want error or ignore)", text)
	}
	return nil
}

// OverlapPolicy decides whether Capture may start while another is pending.
type OverlapPolicy int

const (
	// OverlapAllow lets captures overlap; each appends when it completes.
	OverlapAllow OverlapPolicy = iota
	// OverlapReject fails a second capture with ErrCaptureInProgress.
	OverlapReject
)

func (p OverlapPolicy) String() string {
	if p == OverlapReject {
		return "reject"
	}
	return "allow"
}

func (p OverlapPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *OverlapPolicy) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "allow":
		*p = OverlapAllow
	case "reject":
		*p = OverlapReject
	default:
		return fmt.Errorf("unknown overlap policy %q (want allow or reject)", text)
	}
	return nil
}
