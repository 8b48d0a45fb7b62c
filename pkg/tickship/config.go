package tickship

import (
	"fmt"
	"math"
	"time"

	"github.com/bft-labs/tickship/internal/domain"
)

// Supported transports for reaching the simulation.
const (
	TransportMsgpack = "msgpack"
	TransportGRPC    = "grpc"
	TransportDryRun  = "dryrun"
)

// Config configures a Tickship instance.
type Config struct {
	// Name is the diagnostic name of the batch control stage
	Name string

	// Transport selects how batches reach the simulation: msgpack, grpc or
	// dryrun. Ignored when an episode is injected with WithEpisode.
	Transport string

	// EpisodeAddr is the simulator RPC endpoint (host:port)
	EpisodeAddr string

	// TickCue asks the simulator to advance after applying each batch
	TickCue bool

	DialTimeout   time.Duration
	SubmitTimeout time.Duration

	// TickRate is the frame publication rate in Hz
	TickRate float64

	// Actors and FirstActorID shape the synthetic frame source
	Actors       int
	FirstActorID uint32

	// Ticks stops the pipeline after this many frames (0 = run until stopped)
	Ticks uint64

	// ScriptPath replaces the synthetic source with a YAML frame script
	ScriptPath string

	// ShutdownTimeout bounds Stop
	ShutdownTimeout time.Duration
}

// SetDefaults fills zero-valued fields with defaults.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = "batch-control"
	}
	if c.Transport == "" {
		c.Transport = TransportDryRun
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 2 * time.Second
	}
	if c.TickRate <= 0 {
		c.TickRate = 20
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportMsgpack, TransportGRPC:
		if c.EpisodeAddr == "" {
			return fmt.Errorf("%w: episode address required for transport %q", domain.ErrInvalidConfig, c.Transport)
		}
	case TransportDryRun:
	default:
		return fmt.Errorf("%w: unknown transport %q", domain.ErrInvalidConfig, c.Transport)
	}
	if c.TickRate <= 0 || math.IsInf(c.TickRate, 0) || math.IsNaN(c.TickRate) {
		return fmt.Errorf("%w: tick rate must be a positive number", domain.ErrInvalidConfig)
	}
	if c.Actors < 0 {
		return fmt.Errorf("%w: actors must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}
