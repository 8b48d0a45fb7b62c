package tickship

import (
	"github.com/bft-labs/tickship/internal/domain"
	"github.com/bft-labs/tickship/internal/ports"
	"github.com/bft-labs/tickship/pkg/lifecycle"
	"github.com/bft-labs/tickship/pkg/log"
)

// Re-exported domain types. Embedders build frames and episode handles
// with these.
type (
	// ActorID identifies a simulated vehicle.
	ActorID = domain.ActorID

	// ControlValues are throttle and brake in [0,1] and steer in [-1,1].
	ControlValues = domain.ControlValues

	// Entry pairs an actor with its control values.
	Entry = domain.Entry

	// Frame is the per-tick set of control values, one entry per actor.
	Frame = domain.Frame

	// Command applies control values to one actor.
	Command = domain.Command

	// CommandResult is the simulation's verdict on one command.
	CommandResult = domain.CommandResult

	// EpisodeHandle submits batches to a simulation session.
	EpisodeHandle = ports.EpisodeHandle

	// EpisodeHandleFunc adapts a function to EpisodeHandle.
	EpisodeHandleFunc = ports.EpisodeHandleFunc

	// FrameSource produces the frame for each tick.
	FrameSource = ports.FrameSource

	// Logger is the structured logging interface from pkg/log.
	Logger = log.Logger

	// LogField is a structured log field.
	LogField = log.Field
)

// NewFrame builds a frame, rejecting duplicate actors.
func NewFrame(entries ...Entry) (Frame, error) {
	return domain.NewFrame(entries...)
}

// Errors returned by Tickship.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrNoEpisode       = domain.ErrNoEpisode
)

// State is the lifecycle state of a Tickship instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// CanStart reports whether Start may be called in this state.
func (s State) CanStart() bool {
	return s == StateStopped || s == StateCrashed
}

// CanStop reports whether Stop may be called in this state.
func (s State) CanStop() bool {
	return s == StateStarting || s == StateRunning
}

// IsRunning reports whether the pipeline is running.
func (s State) IsRunning() bool {
	return s == StateRunning
}

func convertState(s lifecycle.State) State {
	switch s {
	case lifecycle.StateStopped:
		return StateStopped
	case lifecycle.StateStarting:
		return StateStarting
	case lifecycle.StateRunning:
		return StateRunning
	case lifecycle.StateStopping:
		return StateStopping
	case lifecycle.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
