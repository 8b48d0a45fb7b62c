// Package lifecycle provides orchestration and state machine functionality.
//
// This package manages the lifecycle of a tickship instance, including
// state transitions (Stopped, Starting, Running, Stopping, Crashed),
// graceful shutdown with timeout, and worker coordination. It also carries
// the jittered Backoff used by transports to pace reconnect attempts.
//
// # Usage
//
// Create a lifecycle manager:
//
//	manager := lifecycle.NewManager(logger, eventEmitter)
//
//	if !manager.CanStart() {
//	    return ErrAlreadyRunning
//	}
//
//	if err := manager.TransitionTo(lifecycle.StateStarting, "starting"); err != nil {
//	    return err
//	}
//
//	// ... run the pipeline in a goroutine ...
//
//	// Graceful shutdown
//	if err := manager.WaitWithTimeout(30 * time.Second); err != nil {
//	    return ErrShutdownTimeout
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopping, Crashed
//   - Running -> Stopping, Stopped, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting
//
// Starting -> Stopping covers Stop() arriving before the run goroutine has
// reported Running; the goroutine then returns without starting the stages.
// Running -> Stopped covers a pipeline that finishes on its own, e.g. a
// scripted run whose last frame has been submitted. CanTransition exposes
// the table.
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
