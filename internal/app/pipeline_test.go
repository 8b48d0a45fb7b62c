package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/tickship/internal/control"
	"github.com/bft-labs/tickship/internal/domain"
	"github.com/bft-labs/tickship/internal/messenger"
	"github.com/bft-labs/tickship/internal/planner"
	"github.com/bft-labs/tickship/internal/ports"
	"github.com/bft-labs/tickship/internal/stage"
)

type countingEpisode struct {
	mu        sync.Mutex
	sizes     []int
	last      []domain.ActorID
	submitted chan struct{} // optional, signalled after every batch
}

func (c *countingEpisode) SubmitBatch(ctx context.Context, cmds []domain.Command) ([]domain.CommandResult, error) {
	c.mu.Lock()
	c.sizes = append(c.sizes, len(cmds))
	c.last = c.last[:0]
	for _, cmd := range cmds {
		c.last = append(c.last, cmd.Actor)
	}
	c.mu.Unlock()

	if c.submitted != nil {
		c.submitted <- struct{}{}
	}
	return nil, nil
}

func (c *countingEpisode) LastActors() []domain.ActorID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ActorID(nil), c.last...)
}

func (c *countingEpisode) Sizes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.sizes...)
}

func buildPipeline(t *testing.T, ep ports.EpisodeHandle, ticks <-chan time.Time, maxTicks uint64) *Pipeline {
	t.Helper()

	m := messenger.New[domain.Frame]()
	pub, err := planner.NewPublisher(planner.PublisherConfig{
		Out:      m,
		Source:   planner.Synthetic{Actors: 2, FirstActorID: 10},
		MaxTicks: maxTicks,
		Ticks:    ticks,
	})
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	bc, err := control.New(control.Config{Name: "batch-control", Messenger: m, Episode: ep})
	if err != nil {
		t.Fatalf("control.New() error = %v", err)
	}

	p := NewPipeline(nil, nil)
	p.AddMessenger(m)
	p.AddStage(pub)
	p.AddStage(bc)
	return p
}

func TestPipeline_RunsUntilPublisherFinishes(t *testing.T) {
	const n = 5
	ep := &countingEpisode{submitted: make(chan struct{}, n)}
	ticks := make(chan time.Time)
	p := buildPipeline(t, ep, ticks, n)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	for i := 0; i < n; i++ {
		ticks <- time.Now()
		if i == n-1 {
			// The publisher stops right after this push.
			break
		}
		select {
		case <-ep.submitted:
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d was not submitted", i+1)
		}
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop")
	}

	sizes := ep.Sizes()
	if len(sizes) != n {
		t.Fatalf("submitted %d batches for %d ticks, want %d", len(sizes), n, n)
	}
	for i, size := range sizes {
		if size != 2 {
			t.Errorf("batch %d size = %d, want 2", i, size)
		}
	}
	if got := ep.LastActors(); len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Errorf("last batch actors = %v, want [10 11]", got)
	}
}

func TestPipeline_BoundedRunDeliversLastFrame(t *testing.T) {
	for run := 0; run < 50; run++ {
		ep := &countingEpisode{}
		ticks := make(chan time.Time, 1)
		p := buildPipeline(t, ep, ticks, 1)

		ticks <- time.Now()
		if err := p.Run(context.Background()); err != nil {
			t.Fatalf("run %d: Run() = %v, want nil", run, err)
		}
		if got := len(ep.Sizes()); got != 1 {
			t.Fatalf("run %d: submitted %d batches for 1 tick, want 1", run, got)
		}
	}
}

func TestPipeline_CancelStopsAllStages(t *testing.T) {
	ep := &countingEpisode{}
	ticks := make(chan time.Time)
	p := buildPipeline(t, ep, ticks, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	ticks <- time.Now()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop after cancel")
	}
}

type brokenStage struct{}

func (brokenStage) Name() string                       { return "broken" }
func (brokenStage) DataReceiver(context.Context) error { return errors.New("upstream socket lost") }
func (brokenStage) Action()                            {}
func (brokenStage) DataSender(context.Context) error   { return nil }

func TestPipeline_StageErrorStopsOthers(t *testing.T) {
	m := messenger.New[domain.Frame]()
	bc, err := control.New(control.Config{Name: "batch-control", Messenger: m, Episode: &countingEpisode{}})
	if err != nil {
		t.Fatalf("control.New() error = %v", err)
	}

	p := NewPipeline(nil, nil)
	p.AddMessenger(m)
	p.AddStage(brokenStage{})
	bcRunner := p.AddStage(bc)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil || err.Error() != "upstream socket lost" {
			t.Fatalf("Run() = %v, want upstream socket lost", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop after stage error")
	}

	if bcRunner.Phase() != stage.PhaseStopped {
		t.Errorf("batch control phase = %v, want Stopped", bcRunner.Phase())
	}
}

func TestPipeline_RejectsConcurrentRun(t *testing.T) {
	ticks := make(chan time.Time)
	p := buildPipeline(t, &countingEpisode{}, ticks, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	if err := p.Run(ctx); err == nil {
		t.Error("second Run() should fail while the first is active")
	}

	cancel()
	<-done
}
