package app

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/bft-labs/tickship/internal/stage"
	"github.com/bft-labs/tickship/pkg/log"
)

// Pipeline runs a set of stages, each on its own goroutine, coupled only
// through messengers.
type Pipeline struct {
	logger   log.Logger
	observer stage.PhaseObserver

	mu         sync.Mutex
	runners    []*stage.Runner
	messengers []io.Closer
	running    bool
}

// NewPipeline creates an empty pipeline. observer may be nil.
func NewPipeline(logger log.Logger, observer stage.PhaseObserver) *Pipeline {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Pipeline{logger: logger, observer: observer}
}

// AddStage registers a stage. Must be called before Run.
func (p *Pipeline) AddStage(s stage.Stage) *stage.Runner {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := stage.NewRunner(s, p.logger, p.observer)
	p.runners = append(p.runners, r)
	return r
}

// AddMessenger registers a messenger to be closed on shutdown.
func (p *Pipeline) AddMessenger(m io.Closer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messengers = append(p.messengers, m)
}

// Run starts every stage and blocks until all of them have stopped.
//
// When ctx is cancelled the messengers are closed, which unblocks every
// stage waiting in DataReceiver. Stages that are mid-cycle finish their
// DataSender first. Returns the first unexpected stage error, or nil.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("pipeline already running")
	}
	p.running = true
	runners := append([]*stage.Runner(nil), p.runners...)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)

	for _, r := range runners {
		wg.Add(1)
		go func(r *stage.Runner) {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				// One stage failing takes the rest down with it.
				p.closeMessengers()
			}
		}(r)
	}

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.closeMessengers()
		case <-stopped:
		}
	}()

	wg.Wait()
	close(stopped)

	// Stages that stop on their own (a finished publisher) leave the
	// remaining messengers open; close them so none outlives the run.
	p.closeMessengers()

	p.logger.Info("pipeline stopped", log.Int("stages", len(runners)))
	return firstErr
}

// Shutdown closes every messenger, asking all stages to stop.
func (p *Pipeline) Shutdown() {
	p.closeMessengers()
}

func (p *Pipeline) closeMessengers() {
	p.mu.Lock()
	ms := append([]io.Closer(nil), p.messengers...)
	p.mu.Unlock()

	for _, m := range ms {
		if err := m.Close(); err != nil {
			p.logger.Warn("close messenger", log.Err(err))
		}
	}
}
