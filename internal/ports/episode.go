package ports

import (
	"context"

	"github.com/bft-labs/tickship/internal/domain"
)

// EpisodeHandle submits command batches to the active simulation session.
// The handle is owned by the caller that created it; stages only use it.
// Implementations must be safe for concurrent use if more than one stage
// shares the handle.
type EpisodeHandle interface {
	// SubmitBatch sends all commands in a single call.
	// A non-nil error means the submission as a whole failed.
	// On success, results is either nil (no per-command granularity) or
	// aligned one-to-one with cmds.
	SubmitBatch(ctx context.Context, cmds []domain.Command) ([]domain.CommandResult, error)
}

// EpisodeHandleFunc adapts a function to EpisodeHandle.
type EpisodeHandleFunc func(ctx context.Context, cmds []domain.Command) ([]domain.CommandResult, error)

// SubmitBatch calls f.
func (f EpisodeHandleFunc) SubmitBatch(ctx context.Context, cmds []domain.Command) ([]domain.CommandResult, error) {
	return f(ctx, cmds)
}
