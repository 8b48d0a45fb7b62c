// Package stage defines the three-phase execution contract shared by every
// pipeline element and the loop that drives it.
//
// Each cycle runs DataReceiver, Action and DataSender in order:
//
//	WAITING -> PROCESSING -> SENDING -> WAITING ... -> STOPPED
//
// DataReceiver is the only place a stage blocks and the only place shutdown
// is observed. Once Action has started, the DataSender of the same cycle
// always runs, so a batch is never left half-applied.
package stage

import (
	"context"
	"errors"
)

// ErrStopped is returned by DataReceiver to end the stage loop cleanly.
var ErrStopped = errors.New("stage: stopped")

// Stage is a concurrently executing pipeline element.
type Stage interface {
	// Name returns a diagnostic name for the stage instance.
	Name() string

	// DataReceiver blocks until new input is owned by the stage or shutdown
	// is observed. Returning ErrStopped, messenger.ErrClosed or a context
	// error terminates the loop without running Action.
	DataReceiver(ctx context.Context) error

	// Action computes over data exclusively owned by the stage.
	Action()

	// DataSender publishes the result of Action downstream and/or performs
	// an external side effect. Errors are reported but do not stop the loop.
	DataSender(ctx context.Context) error
}

// Phase is the position of a stage within its cycle.
type Phase int32

const (
	PhaseWaiting Phase = iota
	PhaseProcessing
	PhaseSending
	PhaseStopped
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "Waiting"
	case PhaseProcessing:
		return "Processing"
	case PhaseSending:
		return "Sending"
	case PhaseStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// PhaseObserver is called on every phase change of a stage.
// It runs on the stage goroutine and must return quickly.
type PhaseObserver interface {
	OnPhase(stage string, previous, current Phase)
}
