package tickship

import (
	"time"

	"github.com/google/uuid"
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// BatchSubmittedEvent is emitted after a batch submission call succeeded.
// Failures lists the commands the simulation rejected.
type BatchSubmittedEvent struct {
	Stage    string
	BatchID  uuid.UUID
	Sequence uint64
	Size     int
	Failures []CommandResult
	Duration time.Duration
}

// BatchFailedEvent is emitted when a batch submission call failed as a whole.
type BatchFailedEvent struct {
	Stage    string
	BatchID  uuid.UUID
	Sequence uint64
	Size     int
	Error    error
}

// EventHandler receives Tickship events.
// Batch events are delivered from the control loop; implementations must
// return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnBatchSubmitted(event BatchSubmittedEvent)
	OnBatchFailed(event BatchFailedEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// override only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnBatchSubmitted(BatchSubmittedEvent) {}
func (BaseEventHandler) OnBatchFailed(BatchFailedEvent)       {}
