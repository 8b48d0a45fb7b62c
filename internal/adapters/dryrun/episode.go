// Package dryrun provides an episode handle that applies nothing. It logs
// every batch and reports every command as applied, except for actors
// configured as missing.
package dryrun

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/bft-labs/tickship/internal/domain"
	"github.com/bft-labs/tickship/pkg/log"
)

// Stats counts what the episode has seen.
type Stats struct {
	Batches  uint64
	Commands uint64
	Failures uint64
}

// Episode implements ports.EpisodeHandle without a simulator.
// It is safe for concurrent use.
type Episode struct {
	logger  log.Logger
	missing map[domain.ActorID]struct{}

	batches  atomic.Uint64
	commands atomic.Uint64
	failures atomic.Uint64
}

// New creates a dry-run episode. Commands addressed to any of missing fail
// the way a destroyed actor does.
func New(logger log.Logger, missing ...domain.ActorID) *Episode {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	m := make(map[domain.ActorID]struct{}, len(missing))
	for _, id := range missing {
		m[id] = struct{}{}
	}
	return &Episode{logger: logger, missing: m}
}

// SubmitBatch records the batch and returns one result per command.
func (e *Episode) SubmitBatch(ctx context.Context, cmds []domain.Command) ([]domain.CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]domain.CommandResult, len(cmds))
	failed := 0
	for i, c := range cmds {
		results[i].Actor = c.Actor
		if _, ok := e.missing[c.Actor]; ok {
			results[i].Error = fmt.Sprintf("actor %d not found", c.Actor)
			failed++
		}
	}

	e.batches.Add(1)
	e.commands.Add(uint64(len(cmds)))
	e.failures.Add(uint64(failed))

	e.logger.Debug("dry-run batch",
		log.Int("commands", len(cmds)),
		log.Int("failed", failed),
	)
	return results, nil
}

// Stats returns a snapshot of the counters.
func (e *Episode) Stats() Stats {
	return Stats{
		Batches:  e.batches.Load(),
		Commands: e.commands.Load(),
		Failures: e.failures.Load(),
	}
}
