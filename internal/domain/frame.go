package domain

import (
	"fmt"
	"math"
)

// ActorID identifies a vehicle in the simulation.
type ActorID uint32

// ControlValues are the actuation signals applied to one vehicle for one tick.
type ControlValues struct {
	// Throttle is in [0, 1]
	Throttle float64 `json:"throttle" yaml:"throttle" msgpack:"throttle"`

	// Brake is in [0, 1]
	Brake float64 `json:"brake" yaml:"brake" msgpack:"brake"`

	// Steer is in [-1, 1]
	Steer float64 `json:"steer" yaml:"steer" msgpack:"steer"`
}

// Valid reports whether every value lies within its range.
func (c ControlValues) Valid() bool {
	return inRange(c.Throttle, 0, 1) && inRange(c.Brake, 0, 1) && inRange(c.Steer, -1, 1)
}

// Clamp returns a copy with every value forced into its range.
// NaN becomes zero. The bool reports whether anything changed.
func (c ControlValues) Clamp() (ControlValues, bool) {
	out := ControlValues{
		Throttle: clamp(c.Throttle, 0, 1),
		Brake:    clamp(c.Brake, 0, 1),
		Steer:    clamp(c.Steer, -1, 1),
	}
	return out, out != c
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// Entry pairs an actor with the control values it should receive.
type Entry struct {
	Actor   ActorID
	Control ControlValues
}

// Frame is one tick's ordered snapshot of per-actor control values.
// An actor appears at most once. The zero Frame is a valid empty frame.
type Frame struct {
	entries []Entry
}

// NewFrame builds a frame from entries, preserving their order.
// Returns ErrDuplicateActor if an actor is listed more than once.
func NewFrame(entries ...Entry) (Frame, error) {
	seen := make(map[ActorID]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Actor]; dup {
			return Frame{}, fmt.Errorf("%w: actor %d", ErrDuplicateActor, e.Actor)
		}
		seen[e.Actor] = struct{}{}
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return Frame{entries: out}, nil
}

// MustFrame is like NewFrame but panics on duplicate actors.
// Intended for tests and static fixtures.
func MustFrame(entries ...Entry) Frame {
	f, err := NewFrame(entries...)
	if err != nil {
		panic(err)
	}
	return f
}

// Len returns the number of actor entries.
func (f Frame) Len() int {
	return len(f.entries)
}

// At returns the i-th entry in frame order.
func (f Frame) At(i int) Entry {
	return f.entries[i]
}

// Entries returns a copy of the entries in frame order.
func (f Frame) Entries() []Entry {
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Actors returns the actor IDs in frame order.
func (f Frame) Actors() []ActorID {
	ids := make([]ActorID, len(f.entries))
	for i, e := range f.entries {
		ids[i] = e.Actor
	}
	return ids
}
