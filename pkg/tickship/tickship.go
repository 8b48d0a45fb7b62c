package tickship

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bft-labs/tickship/internal/adapters/dryrun"
	"github.com/bft-labs/tickship/internal/adapters/grpcepisode"
	"github.com/bft-labs/tickship/internal/adapters/msgpackrpc"
	"github.com/bft-labs/tickship/internal/app"
	"github.com/bft-labs/tickship/internal/control"
	"github.com/bft-labs/tickship/internal/domain"
	"github.com/bft-labs/tickship/internal/messenger"
	"github.com/bft-labs/tickship/internal/planner"
	"github.com/bft-labs/tickship/pkg/lifecycle"
	"github.com/bft-labs/tickship/pkg/log"
)

// Tickship runs a frame publisher and a batch control stage that submits
// one command batch per tick to a simulation episode.
// Use New() to create an instance, then Start() to begin.
type Tickship struct {
	config    Config
	opts      options
	lifecycle *lifecycle.DefaultManager
	logger    log.Logger
	emitter   *eventEmitter
	source    FrameSource

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	run    *run
}

// run holds the resources of one Start/Stop cycle.
type run struct {
	pipeline *app.Pipeline
	control  *control.Stage
	frames   *messenger.Messenger[domain.Frame]
	closer   io.Closer
	plugins  []Plugin
	logger   log.Logger
	once     sync.Once
}

// Stats is a snapshot of the current or last run.
type Stats struct {
	// Batches counts successful submission calls
	Batches uint64

	// Commands counts commands in successful submissions
	Commands uint64

	// CommandFailures counts commands the simulation rejected
	CommandFailures uint64

	// SubmitFailures counts submission calls that failed as a whole
	SubmitFailures uint64

	// LastSequence is the messenger sequence of the last consumed frame
	LastSequence uint64

	// FramesPublished counts frames pushed by the publisher
	FramesPublished uint64

	// FramesSuperseded counts frames overwritten before they were consumed
	FramesSuperseded uint64

	// RegisteredVehicles is the entry count of the last consumed frame
	RegisteredVehicles int
}

// New creates a new Tickship instance with the given configuration.
// The instance is created in StateStopped; call Start() to begin.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Tickship, error) {
	cfg.SetDefaults()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.episode == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	} else if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("%w: tick rate must be positive", domain.ErrInvalidConfig)
	}

	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	source := o.frameSource
	if source == nil {
		if cfg.ScriptPath != "" {
			script, err := planner.LoadScript(cfg.ScriptPath)
			if err != nil {
				return nil, err
			}
			source = script
		} else {
			source = planner.Synthetic{
				Actors:       cfg.Actors,
				FirstActorID: domain.ActorID(cfg.FirstActorID),
				BrakeEvery:   100,
			}
		}
	}

	emitter := newEventEmitter(o.eventHandler, o.plugins)
	done := make(chan struct{})
	close(done)

	return &Tickship{
		config:    cfg,
		opts:      o,
		lifecycle: lifecycle.NewManager(o.logger, emitter),
		logger:    o.logger,
		emitter:   emitter,
		source:    source,
		done:      done,
	}, nil
}

// Start connects to the episode, initializes plugins and runs the pipeline
// in the background. Returns an error if already running or if startup fails.
// The provided context bounds the lifetime of the run.
func (t *Tickship) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := t.lifecycle.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.lifecycle.SetCancel(cancel)

	r, err := t.prepare(runCtx)
	if err != nil {
		cancel()
		_ = t.lifecycle.TransitionTo(lifecycle.StateCrashed, "startup failed: "+err.Error())
		return err
	}

	pluginCfg := PluginConfig{
		Name:        t.config.Name,
		Transport:   t.config.Transport,
		EpisodeAddr: t.config.EpisodeAddr,
		Logger:      t.logger,
	}
	for _, p := range t.opts.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			t.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			r.release()
			_ = t.lifecycle.TransitionTo(lifecycle.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		r.plugins = append(r.plugins, p)
		t.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	done := make(chan struct{})
	t.done = done
	t.run = r

	t.lifecycle.AddWorker()
	go func() {
		defer close(done)
		defer t.lifecycle.WorkerDone()

		if err := t.lifecycle.TransitionTo(lifecycle.StateRunning, "pipeline starting"); err != nil {
			// Stop() got in first; it releases the run.
			if t.lifecycle.State() == lifecycle.StateStopping {
				t.logger.Debug("stopped before the pipeline started")
				return
			}
			t.logger.Error("failed to transition to running", log.Err(err))
			return
		}

		err := r.pipeline.Run(runCtx)
		if runCtx.Err() != nil {
			if err != nil {
				t.logger.Error("pipeline error during shutdown", log.Err(err))
			}
			// Stop() owns cleanup once it has moved the state to Stopping.
			if t.lifecycle.State() == lifecycle.StateRunning {
				r.release()
				_ = t.lifecycle.TransitionTo(lifecycle.StateStopped, "context cancelled")
			}
			return
		}

		r.release()
		if err != nil {
			t.logger.Error("pipeline error", log.Err(err))
			_ = t.lifecycle.TransitionTo(lifecycle.StateCrashed, err.Error())
			return
		}
		_ = t.lifecycle.TransitionTo(lifecycle.StateStopped, "pipeline finished")
	}()

	return nil
}

// prepare opens the episode and wires the stages of one run.
func (t *Tickship) prepare(ctx context.Context) (*run, error) {
	episode, closer, err := t.openEpisode(ctx)
	if err != nil {
		return nil, err
	}
	r := &run{closer: closer, logger: t.logger}

	r.frames = messenger.New[domain.Frame]()

	pub, err := planner.NewPublisher(planner.PublisherConfig{
		Name:     "planner",
		Out:      r.frames,
		Source:   t.source,
		TickRate: t.config.TickRate,
		MaxTicks: t.config.Ticks,
		Logger:   t.logger,
	})
	if err != nil {
		r.release()
		return nil, err
	}

	r.control, err = control.New(control.Config{
		Name:      t.config.Name,
		Messenger: r.frames,
		Episode:   episode,
		Logger:    t.logger,
		Emitter:   t.emitter,
	})
	if err != nil {
		r.release()
		return nil, err
	}

	r.pipeline = app.NewPipeline(t.logger, nil)
	r.pipeline.AddStage(pub)
	r.pipeline.AddStage(r.control)
	r.pipeline.AddMessenger(r.frames)
	return r, nil
}

// openEpisode returns the episode handle and, when Tickship owns it, the
// closer that releases it.
func (t *Tickship) openEpisode(ctx context.Context) (EpisodeHandle, io.Closer, error) {
	if t.opts.episode != nil {
		return t.opts.episode, nil, nil
	}

	switch t.config.Transport {
	case TransportMsgpack:
		c, err := msgpackrpc.Dial(ctx, t.config.EpisodeAddr, msgpackrpc.Options{
			DialTimeout: t.config.DialTimeout,
			CallTimeout: t.config.SubmitTimeout,
			TickCue:     t.config.TickCue,
			Logger:      t.logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrNoEpisode, err)
		}
		return c, c, nil
	case TransportGRPC:
		c, err := grpcepisode.Dial(ctx, t.config.EpisodeAddr, grpcepisode.Options{
			DialTimeout: t.config.DialTimeout,
			CallTimeout: t.config.SubmitTimeout,
			TickCue:     t.config.TickCue,
			Logger:      t.logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrNoEpisode, err)
		}
		return c, c, nil
	default:
		return dryrun.New(t.logger), nil, nil
	}
}

// release shuts plugins down in reverse order and closes an owned episode.
// Safe to call more than once.
func (r *run) release() {
	r.once.Do(func() {
		ctx := context.Background()
		for i := len(r.plugins) - 1; i >= 0; i-- {
			p := r.plugins[i]
			if err := p.Shutdown(ctx); err != nil {
				r.logger.Error("plugin shutdown failed",
					log.String("plugin", p.Name()),
					log.Err(err))
			} else {
				r.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
			}
		}
		if r.closer != nil {
			if err := r.closer.Close(); err != nil {
				r.logger.Warn("close episode", log.Err(err))
			}
		}
	})
}

// Stop gracefully shuts down the pipeline. A batch already being submitted
// completes first. Waits up to Config.ShutdownTimeout.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (t *Tickship) Stop() error {
	t.mu.Lock()

	if !t.lifecycle.CanStop() {
		t.mu.Unlock()
		return ErrNotRunning
	}
	if err := t.lifecycle.TransitionTo(lifecycle.StateStopping, "Stop() called"); err != nil {
		// The run finished on its own in the meantime.
		t.mu.Unlock()
		return ErrNotRunning
	}
	if t.cancel != nil {
		t.cancel()
	}
	r := t.run
	t.mu.Unlock()

	err := t.lifecycle.WaitWithTimeout(t.config.ShutdownTimeout)

	if r != nil {
		r.release()
	}

	if err != nil {
		_ = t.lifecycle.TransitionTo(lifecycle.StateCrashed, "shutdown timeout")
		if errors.Is(err, lifecycle.ErrShutdownTimeout) {
			return ErrShutdownTimeout
		}
		return err
	}
	_ = t.lifecycle.TransitionTo(lifecycle.StateStopped, "graceful shutdown")
	return nil
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (t *Tickship) Status() State {
	return convertState(t.lifecycle.State())
}

// Wait returns a channel that is closed when the current run ends, either
// because it was stopped or because the frame source ran out.
// Before the first Start the channel is already closed.
func (t *Tickship) Wait() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Stats returns counters of the current or last run.
func (t *Tickship) Stats() Stats {
	t.mu.Lock()
	r := t.run
	t.mu.Unlock()

	if r == nil {
		return Stats{}
	}
	cs := r.control.Stats()
	ms := r.frames.Stats()
	return Stats{
		Batches:            cs.Batches,
		Commands:           cs.Commands,
		CommandFailures:    cs.CommandFailures,
		SubmitFailures:     cs.SubmitFailures,
		LastSequence:       cs.LastSequence,
		FramesPublished:    ms.Pushed,
		FramesSuperseded:   ms.Superseded,
		RegisteredVehicles: r.control.RegisteredVehicles(),
	}
}

// eventEmitter adapts internal callbacks to EventHandler, fanning out to
// the configured handler and to every plugin that implements EventHandler.
type eventEmitter struct {
	handlers []EventHandler
}

func newEventEmitter(handler EventHandler, plugins []Plugin) *eventEmitter {
	e := &eventEmitter{}
	if handler != nil {
		e.handlers = append(e.handlers, handler)
	}
	for _, p := range plugins {
		if h, ok := p.(EventHandler); ok {
			e.handlers = append(e.handlers, h)
		}
	}
	return e
}

func (e *eventEmitter) OnStateChange(previous, current lifecycle.State, reason string) {
	ev := StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	}
	for _, h := range e.handlers {
		h.OnStateChange(ev)
	}
}

func (e *eventEmitter) OnSubmitSuccess(stage string, batch *domain.Batch, failures []domain.CommandResult, duration time.Duration) {
	ev := BatchSubmittedEvent{
		Stage:    stage,
		BatchID:  batch.ID,
		Sequence: batch.Sequence,
		Size:     batch.Size(),
		Failures: failures,
		Duration: duration,
	}
	for _, h := range e.handlers {
		h.OnBatchSubmitted(ev)
	}
}

func (e *eventEmitter) OnSubmitError(stage string, batch *domain.Batch, err error) {
	ev := BatchFailedEvent{
		Stage:    stage,
		BatchID:  batch.ID,
		Sequence: batch.Sequence,
		Size:     batch.Size(),
		Error:    err,
	}
	for _, h := range e.handlers {
		h.OnBatchFailed(ev)
	}
}

var (
	_ lifecycle.EventEmitter     = (*eventEmitter)(nil)
	_ control.SubmitEventEmitter = (*eventEmitter)(nil)
)
