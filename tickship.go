// Package tickship drives simulated vehicles by submitting one batch of
// control commands to the simulation per tick.
//
// Example usage:
//
//	cfg := tickship.DefaultConfig()
//	cfg.EpisodeAddr = "127.0.0.1:2000"
//	cfg.Ticks = 200
//	if err := tickship.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For lifecycle control, events and plugins use pkg/tickship directly.
package tickship

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/tickship/internal/cliconfig"
	tlog "github.com/bft-labs/tickship/pkg/log"
	"github.com/bft-labs/tickship/pkg/tickship"
)

// Config holds the configuration of a run.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = tickship.Config

// ErrCrashed is returned by Run when the pipeline ended with an error.
var ErrCrashed = errors.New("tickship: pipeline crashed")

// DefaultEpisodeAddr is the default simulator RPC endpoint.
const DefaultEpisodeAddr = cliconfig.DefaultEpisodeAddr

// DefaultConfig returns a Config for the msgpack transport at
// DefaultEpisodeAddr with a four-vehicle synthetic fleet at 20 Hz.
func DefaultConfig() Config {
	return Config{
		Name:            "batch-control",
		Transport:       tickship.TransportMsgpack,
		EpisodeAddr:     DefaultEpisodeAddr,
		DialTimeout:     5 * time.Second,
		SubmitTimeout:   2 * time.Second,
		TickRate:        20,
		Actors:          4,
		FirstActorID:    1,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Run starts the pipeline and blocks until the context is cancelled or the
// frame source runs out. Set cfg.Ticks to bound the run.
func Run(ctx context.Context, cfg Config) error {
	ts, err := tickship.New(cfg, tickship.WithLogger(tlog.NewZerologAdapterWithLogger(Logger())))
	if err != nil {
		return err
	}
	if err := ts.Start(ctx); err != nil {
		return err
	}

	// The run ends by itself once ctx is cancelled.
	<-ts.Wait()

	if ts.Status() == tickship.StateCrashed {
		return ErrCrashed
	}
	return nil
}

// Logger returns the package-level zerolog logger used by Run.
func Logger() zerolog.Logger {
	return cliconfig.Logger()
}
