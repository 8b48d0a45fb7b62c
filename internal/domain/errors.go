package domain

import "errors"

// Domain errors represent error conditions in the tickship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("tickship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("tickship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("tickship: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("tickship: invalid configuration")

	// ErrNoEpisode is returned when a stage is constructed without a usable
	// episode handle. The stage never enters its run loop.
	ErrNoEpisode = errors.New("tickship: no usable episode handle")

	// ErrDuplicateActor is returned when a frame lists the same actor twice.
	ErrDuplicateActor = errors.New("tickship: duplicate actor in frame")
)
