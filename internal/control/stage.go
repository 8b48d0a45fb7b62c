// Package control implements the batch control stage: the leaf of the
// pipeline that turns each tick's control frame into one batch of remote
// commands and submits it through the episode handle in a single call.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bft-labs/tickship/internal/domain"
	"github.com/bft-labs/tickship/internal/messenger"
	"github.com/bft-labs/tickship/internal/ports"
	"github.com/bft-labs/tickship/internal/stage"
	"github.com/bft-labs/tickship/pkg/log"
)

// SubmitEventEmitter is called after every batch submission.
type SubmitEventEmitter interface {
	// OnSubmitSuccess is called when the submission call succeeded. failures
	// lists commands the simulation rejected; it is empty when all applied.
	OnSubmitSuccess(stage string, batch *domain.Batch, failures []domain.CommandResult, duration time.Duration)

	// OnSubmitError is called when the submission call itself failed.
	OnSubmitError(stage string, batch *domain.Batch, err error)
}

// Config holds the construction parameters of a batch control stage.
type Config struct {
	// Name is the diagnostic name of the stage instance
	Name string

	// Messenger is the upstream handoff carrying control frames
	Messenger *messenger.Messenger[domain.Frame]

	// Episode submits batches to the simulation. Required.
	Episode ports.EpisodeHandle

	// Logger defaults to a no-op logger
	Logger log.Logger

	// Emitter is optional
	Emitter SubmitEventEmitter
}

// Stats is a snapshot of the stage's diagnostic counters.
type Stats struct {
	Batches         uint64
	Commands        uint64
	CommandFailures uint64
	SubmitFailures  uint64
	LastSequence    uint64
}

// Stage is the batch control stage. It implements stage.Stage.
//
// Between cycles it keeps nothing but its messenger, episode handle and
// diagnostic counters; the frame and batch of one cycle are dropped before
// the next one starts.
type Stage struct {
	name      string
	messenger *messenger.Messenger[domain.Frame]
	episode   ports.EpisodeHandle
	logger    log.Logger
	emitter   SubmitEventEmitter

	// Owned by the stage goroutine for the duration of one cycle.
	frame    domain.Frame
	sequence uint64
	batch    *domain.Batch

	registered      atomic.Int64
	batches         atomic.Uint64
	commands        atomic.Uint64
	commandFailures atomic.Uint64
	submitFailures  atomic.Uint64
	lastSequence    atomic.Uint64
}

// New creates a batch control stage.
// Returns ErrNoEpisode if cfg.Episode is nil; the stage must not run without one.
func New(cfg Config) (*Stage, error) {
	if cfg.Episode == nil {
		return nil, domain.ErrNoEpisode
	}
	if cfg.Messenger == nil {
		return nil, fmt.Errorf("%w: batch control stage needs a messenger", domain.ErrInvalidConfig)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: batch control stage needs a name", domain.ErrInvalidConfig)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}

	return &Stage{
		name:      cfg.Name,
		messenger: cfg.Messenger,
		episode:   cfg.Episode,
		logger:    cfg.Logger,
		emitter:   cfg.Emitter,
	}, nil
}

// Name returns the diagnostic name of the stage.
func (s *Stage) Name() string {
	return s.name
}

// DataReceiver blocks until the upstream stage publishes a new frame.
// A closed messenger ends the stage.
func (s *Stage) DataReceiver(ctx context.Context) error {
	frame, seq, err := s.messenger.Pull(ctx)
	if err != nil {
		if errors.Is(err, messenger.ErrClosed) {
			return stage.ErrStopped
		}
		return err
	}

	s.frame = frame
	s.sequence = seq
	s.registered.Store(int64(frame.Len()))
	return nil
}

// Action builds one command per frame entry, in frame order.
// Out-of-range control values are clamped and reported; no entry is
// dropped or synthesized.
func (s *Stage) Action() {
	b := domain.NewBatch(s.sequence, s.frame.Len())

	for i := 0; i < s.frame.Len(); i++ {
		e := s.frame.At(i)
		ctl, clamped := e.Control.Clamp()
		cmd := domain.Command{Actor: e.Actor, Control: ctl}
		if clamped {
			s.logger.Warn("control values out of range, clamped",
				log.String("stage", s.name),
				log.String("command", string(cmd.Kind())),
				log.Uint32("actor", uint32(e.Actor)),
				log.Any("control", e.Control),
			)
		}
		b.Add(cmd)
	}

	s.batch = b
}

// DataSender submits the batch in one call. Empty batches are submitted
// too, so the server sees a uniform tick cadence. Failures are reported,
// never retried: the next frame supersedes this one.
func (s *Stage) DataSender(ctx context.Context) error {
	b := s.batch
	s.batch = nil
	s.frame = domain.Frame{}

	if b == nil {
		return nil
	}

	start := time.Now()
	results, err := s.episode.SubmitBatch(ctx, b.Commands)
	duration := time.Since(start)

	s.batches.Add(1)
	s.commands.Add(uint64(b.Size()))
	s.lastSequence.Store(b.Sequence)

	if err != nil {
		s.submitFailures.Add(1)
		if s.emitter != nil {
			s.emitter.OnSubmitError(s.name, b, err)
		}
		return fmt.Errorf("submit batch %d (%d commands): %w", b.Sequence, b.Size(), err)
	}

	if results != nil && len(results) != b.Size() {
		s.logger.Warn("result count does not match batch size",
			log.String("stage", s.name),
			log.Uint64("seq", b.Sequence),
			log.Int("commands", b.Size()),
			log.Int("results", len(results)),
		)
	}

	failures := domain.Failures(results)
	if len(failures) > 0 {
		s.logger.Warn("commands failed",
			log.String("stage", s.name),
			log.Uint64("seq", b.Sequence),
			log.Int("failed", len(failures)),
			log.Err(&domain.SubmitError{Failures: failures}),
		)
	}
	s.commandFailures.Add(uint64(len(failures)))

	s.logger.Debug("submitted batch",
		log.String("stage", s.name),
		log.String("batch", b.ID.String()),
		log.Uint64("seq", b.Sequence),
		log.Int("commands", b.Size()),
		log.Int("failed", len(failures)),
		log.Duration("duration", duration),
	)

	if s.emitter != nil {
		s.emitter.OnSubmitSuccess(s.name, b, failures, duration)
	}
	return nil
}

// RegisteredVehicles returns the actor count of the most recently received
// frame. It is advisory; batch size always follows the frame itself.
func (s *Stage) RegisteredVehicles() int {
	return int(s.registered.Load())
}

// Stats returns a snapshot of the diagnostic counters.
// Safe to call from any goroutine.
func (s *Stage) Stats() Stats {
	return Stats{
		Batches:         s.batches.Load(),
		Commands:        s.commands.Load(),
		CommandFailures: s.commandFailures.Load(),
		SubmitFailures:  s.submitFailures.Load(),
		LastSequence:    s.lastSequence.Load(),
	}
}

var _ stage.Stage = (*Stage)(nil)
