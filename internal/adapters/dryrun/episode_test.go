package dryrun

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/tickship/internal/domain"
)

func TestEpisode_AllApplied(t *testing.T) {
	e := New(nil)

	results, err := e.SubmitBatch(context.Background(), []domain.Command{
		{Actor: 1, Control: domain.ControlValues{Throttle: 0.5}},
		{Actor: 2, Control: domain.ControlValues{Brake: 1}},
	})
	require.NoError(t, err)

	want := []domain.CommandResult{{Actor: 1}, {Actor: 2}}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Stats{Batches: 1, Commands: 2}, e.Stats())
}

func TestEpisode_MissingActorsFail(t *testing.T) {
	e := New(nil, 2)

	results, err := e.SubmitBatch(context.Background(), []domain.Command{{Actor: 1}, {Actor: 2}, {Actor: 3}})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Failed())
	assert.True(t, results[1].Failed())
	assert.Equal(t, "actor 2 not found", results[1].Error)
	assert.False(t, results[2].Failed())
	assert.Equal(t, uint64(1), e.Stats().Failures)
}

func TestEpisode_EmptyBatch(t *testing.T) {
	e := New(nil)

	results, err := e.SubmitBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, uint64(1), e.Stats().Batches)
}

func TestEpisode_CanceledContext(t *testing.T) {
	e := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.SubmitBatch(ctx, []domain.Command{{Actor: 1}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, e.Stats().Batches)
}
