package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/CamGo/internal/bridge"
	"github.com/cjeanneret/CamGo/internal/debug"
	"github.com/cjeanneret/CamGo/internal/logic/session"
)

// Shooter takes one picture into the session. session.Controller implements it.
type Shooter interface {
	Capture(ctx context.Context) *bridge.Future[session.Snapshot]
}

// Sequence contains high-level logic for series of captures
// (bursts, timelapse).
type Sequence struct {
	shooter Shooter
}

func NewSequence(s Shooter) *Sequence {
	return &Sequence{shooter: s}
}

// Params defines a series of shots.
type Params struct {
	Count int // number of shots, at least 1

	ShotDelay time.Duration // delay before each shot (stabilization)
	Interval  time.Duration // delay after a shot before the next one

	// ContinueOnError keeps going after a failed shot; the failures are
	// returned joined once the series ends.
	ContinueOnError bool
}

// Validate checks the series parameters.
func (p Params) Validate() error {
	if p.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", p.Count)
	}
	if p.ShotDelay < 0 || p.Interval < 0 {
		return errors.New("delays must not be negative")
	}
	return nil
}

// Run takes p.Count shots one after the other and returns the snapshots
// taken. Each shot waits for the previous one to finish, so they land in
// the session in order. Cancelling ctx stops the series between shots or
// abandons the shot in flight.
func (s *Sequence) Run(ctx context.Context, p Params) ([]session.Snapshot, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	debug.Section("Starting Capture Sequence")
	shots := make([]session.Snapshot, 0, p.Count)
	var failures []error

	for i := 0; i < p.Count; i++ {
		if err := sleep(ctx, p.ShotDelay); err != nil {
			return shots, err
		}

		debug.Live("Shot %d/%d", i+1, p.Count)
		snap, err := s.shooter.Capture(ctx).Await(ctx)
		if err != nil {
			err = fmt.Errorf("shot %d/%d: %w", i+1, p.Count, err)
			if !p.ContinueOnError || ctx.Err() != nil {
				return shots, errors.Join(append(failures, err)...)
			}
			debug.Error(err)
			failures = append(failures, err)
		} else {
			shots = append(shots, snap)
		}

		if i < p.Count-1 {
			if err := sleep(ctx, p.Interval); err != nil {
				return shots, err
			}
		}
	}

	debug.Section("Sequence Complete")
	return shots, errors.Join(failures...)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
