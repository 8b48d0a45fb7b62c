package domain

import (
	"fmt"
	"strings"
)

// CommandKind tags the remote request a Command represents.
type CommandKind string

// KindApplyVehicleControl applies throttle, brake and steer to a vehicle.
const KindApplyVehicleControl CommandKind = "apply_vehicle_control"

// Command asks the simulation to apply control values to one actor.
type Command struct {
	Actor   ActorID
	Control ControlValues
}

// Kind returns the remote request tag for the command.
func (Command) Kind() CommandKind {
	return KindApplyVehicleControl
}

// CommandResult is the outcome of a single command as reported by the simulation.
// An empty Error means the command was applied.
type CommandResult struct {
	Actor ActorID
	Error string
}

// Failed reports whether the simulation rejected the command.
func (r CommandResult) Failed() bool {
	return r.Error != ""
}

// SubmitError collects the per-command failures of an otherwise successful
// batch submission.
type SubmitError struct {
	Failures []CommandResult
}

// Error implements error.
func (e *SubmitError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("actor %d: %s", f.Actor, f.Error))
	}
	return fmt.Sprintf("%d command(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Failures filters results down to the failed commands.
// Returns nil if every command succeeded.
func Failures(results []CommandResult) []CommandResult {
	var failed []CommandResult
	for _, r := range results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}
