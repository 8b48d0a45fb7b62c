// Package planner provides the upstream producer stage of the pipeline.
//
// The real localization, collision and motion planning stages are outside
// tickship. A Publisher stands in for them: on every simulation tick it asks
// a FrameSource for the tick's control frame and pushes it to the batch
// control stage's messenger.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/tickship/internal/domain"
	"github.com/bft-labs/tickship/internal/messenger"
	"github.com/bft-labs/tickship/internal/ports"
	"github.com/bft-labs/tickship/internal/stage"
	"github.com/bft-labs/tickship/pkg/log"
)

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	Name   string
	Out    *messenger.Messenger[domain.Frame]
	Source ports.FrameSource

	// TickRate is the simulation rate in Hz. Ignored when Ticks is set.
	TickRate float64

	// MaxTicks stops the publisher after that many frames. 0 means unlimited.
	MaxTicks uint64

	// Ticks overrides the internal ticker, e.g. with a channel driven by the
	// simulation's own tick notifications.
	Ticks <-chan time.Time

	Logger log.Logger
}

// Publisher is a stage.Stage that publishes one frame per tick.
// When it stops it closes its output messenger, which in turn stops the
// downstream stage. A run that ends because the ticks or frames ran out
// still delivers its last frame; cancellation drops it.
type Publisher struct {
	name     string
	out      *messenger.Messenger[domain.Frame]
	source   ports.FrameSource
	maxTicks uint64
	logger   log.Logger

	ticks  <-chan time.Time
	ticker *time.Ticker

	tick      uint64
	frame     domain.Frame
	exhausted bool
}

// NewPublisher creates a publisher stage.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.Out == nil || cfg.Source == nil {
		return nil, fmt.Errorf("%w: publisher needs an output messenger and a frame source", domain.ErrInvalidConfig)
	}
	if cfg.Name == "" {
		cfg.Name = "planner"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}

	p := &Publisher{
		name:     cfg.Name,
		out:      cfg.Out,
		source:   cfg.Source,
		maxTicks: cfg.MaxTicks,
		logger:   cfg.Logger,
		ticks:    cfg.Ticks,
	}

	if p.ticks == nil {
		if cfg.TickRate <= 0 {
			return nil, fmt.Errorf("%w: tick rate must be positive", domain.ErrInvalidConfig)
		}
		p.ticker = time.NewTicker(time.Duration(float64(time.Second) / cfg.TickRate))
		p.ticks = p.ticker.C
	}

	return p, nil
}

// Name returns the diagnostic name of the stage.
func (p *Publisher) Name() string {
	return p.name
}

// DataReceiver waits for the next simulation tick.
func (p *Publisher) DataReceiver(ctx context.Context) error {
	if p.exhausted || (p.maxTicks > 0 && p.tick >= p.maxTicks) {
		return p.stop(stage.ErrStopped)
	}

	select {
	case <-ctx.Done():
		return p.stop(ctx.Err())
	case _, ok := <-p.ticks:
		if !ok {
			return p.stop(stage.ErrStopped)
		}
		return nil
	}
}

// Action fetches the frame for the current tick.
func (p *Publisher) Action() {
	frame, ok := p.source.Next(p.tick)
	if !ok {
		p.exhausted = true
		p.frame = domain.Frame{}
		return
	}
	p.frame = frame
}

// DataSender hands the frame to the downstream stage. The publisher drops
// its reference; the consumer owns the frame from here on.
func (p *Publisher) DataSender(ctx context.Context) error {
	if p.exhausted {
		return nil
	}

	seq := p.out.Push(p.frame)
	p.frame = domain.Frame{}
	p.tick++

	p.logger.Debug("published frame",
		log.String("stage", p.name),
		log.Uint64("tick", p.tick),
		log.Uint64("seq", seq),
	)
	return nil
}

// Ticks returns the number of frames published so far.
// Only meaningful once the stage has stopped.
func (p *Publisher) Ticks() uint64 {
	return p.tick
}

func (p *Publisher) stop(reason error) error {
	if p.ticker != nil {
		p.ticker.Stop()
	}
	if errors.Is(reason, stage.ErrStopped) {
		p.out.CloseAfterDrain()
	} else {
		p.out.Close()
	}
	p.logger.Info("publisher finished",
		log.String("stage", p.name),
		log.Uint64("ticks", p.tick),
	)
	return reason
}

var _ stage.Stage = (*Publisher)(nil)
