package ports

import "github.com/bft-labs/tickship/internal/domain"

// FrameSource produces the control frame for each simulation tick.
// It stands in for the upstream localization, collision and motion
// planning stages.
type FrameSource interface {
	// Next returns the frame for the given tick.
	// Returns false when the source has no more frames.
	Next(tick uint64) (domain.Frame, bool)
}
