package session

import (
	"slices"
	"time"
)

// NoIndex is the active index of an empty session.
const NoIndex = -1

// Snapshot is one captured image.
type Snapshot struct {
	ID         string    `json:"id"`
	Reference  string    `json:"reference"` // data URI or file/native URI
	CapturedAt time.Time `json:"captured_at"`
}

// State is what observers see: the snapshots in capture order and the
// position of the one on screen. Both change together in one published
// value. Published states are never modified; treat the slice as read-only.
type State struct {
	Snapshots []Snapshot `json:"snapshots"`
	Active    int        `json:"active"`
}

func emptyState() State {
	return State{Snapshots: []Snapshot{}, Active: NoIndex}
}

// Len returns the number of snapshots.
func (s State) Len() int {
	return len(s.Snapshots)
}

// Current returns the active snapshot.
func (s State) Current() (Snapshot, bool) {
	if s.Active < 0 || s.Active >= len(s.Snapshots) {
		return Snapshot{}, false
	}
	return s.Snapshots[s.Active], true
}

// Clone returns a copy sharing nothing with s.
func (s State) Clone() State {
	return State{Snapshots: slices.Clone(s.Snapshots), Active: s.Active}
}

// appended returns the state after a capture: snap at the end, active.
func (s State) appended(snap Snapshot) State {
	next := append(slices.Clip(s.Snapshots), snap)
	return State{Snapshots: next, Active: len(next) - 1}
}

// rotated moves the active index by delta, wrapping around. The caller
// guarantees a non-empty list.
func (s State) rotated(delta int) State {
	n := len(s.Snapshots)
	i := s.Active
	if i < 0 || i >= n {
		i = n - 1
	}
	return State{Snapshots: s.Snapshots, Active: ((i+delta)%n + n) % n}
}
