package stage

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/bft-labs/tickship/internal/messenger"
	"github.com/bft-labs/tickship/pkg/log"
)

// Runner drives a Stage through its cycle until it stops.
type Runner struct {
	stage    Stage
	logger   log.Logger
	observer PhaseObserver

	phase  atomic.Int32
	cycles atomic.Uint64
}

// NewRunner creates a runner for s. observer may be nil.
func NewRunner(s Stage, logger log.Logger, observer PhaseObserver) *Runner {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	r := &Runner{
		stage:    s,
		logger:   logger,
		observer: observer,
	}
	r.phase.Store(int32(PhaseWaiting))
	return r
}

// Phase returns the current phase of the stage.
func (r *Runner) Phase() Phase {
	return Phase(r.phase.Load())
}

// Cycles returns the number of completed cycles.
func (r *Runner) Cycles() uint64 {
	return r.cycles.Load()
}

// Run executes the stage loop on the calling goroutine.
// It returns nil on clean shutdown and the receive error otherwise.
func (r *Runner) Run(ctx context.Context) error {
	name := r.stage.Name()

	// In-flight sends are never cancelled; only DataReceiver sees ctx.
	sendCtx := context.WithoutCancel(ctx)

	for {
		r.setPhase(PhaseWaiting)

		if err := r.stage.DataReceiver(ctx); err != nil {
			r.setPhase(PhaseStopped)
			if isShutdown(err) {
				r.logger.Debug("stage stopped",
					log.String("stage", name),
					log.Uint64("cycles", r.Cycles()),
				)
				return nil
			}
			r.logger.Error("stage receive failed",
				log.String("stage", name),
				log.Err(err),
			)
			return err
		}

		r.setPhase(PhaseProcessing)
		r.stage.Action()

		r.setPhase(PhaseSending)
		if err := r.stage.DataSender(sendCtx); err != nil {
			r.logger.Error("stage send failed",
				log.String("stage", name),
				log.Err(err),
			)
		}

		r.cycles.Add(1)
	}
}

func (r *Runner) setPhase(p Phase) {
	prev := Phase(r.phase.Swap(int32(p)))
	if prev != p && r.observer != nil {
		r.observer.OnPhase(r.stage.Name(), prev, p)
	}
}

// isShutdown reports whether err means the stage should stop cleanly.
func isShutdown(err error) bool {
	return errors.Is(err, ErrStopped) ||
		errors.Is(err, messenger.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
