package grpcepisode

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bft-labs/tickship/internal/adapters/dryrun"
	"github.com/bft-labs/tickship/internal/domain"
	"github.com/bft-labs/tickship/internal/ports"
)

func startServer(t *testing.T, episode ports.EpisodeHandle) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(episode, nil)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	t.Cleanup(func() {
		_ = srv.Close()
		<-done
	})
	return ln.Addr().String()
}

func dial(t *testing.T, addr string, opts Options) *Client {
	t.Helper()
	c, err := Dial(context.Background(), addr, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_SubmitBatch(t *testing.T) {
	addr := startServer(t, dryrun.New(nil, 9))
	c := dial(t, addr, Options{})

	results, err := c.SubmitBatch(context.Background(), []domain.Command{
		{Actor: 7, Control: domain.ControlValues{Throttle: 0.5, Steer: -0.1}},
		{Actor: 9, Control: domain.ControlValues{Brake: 1}},
	})
	require.NoError(t, err)

	want := []domain.CommandResult{
		{Actor: 7},
		{Actor: 9, Error: "actor 9 not found"},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_CommandsArriveIntact(t *testing.T) {
	got := make(chan []domain.Command, 1)
	episode := ports.EpisodeHandleFunc(func(ctx context.Context, cmds []domain.Command) ([]domain.CommandResult, error) {
		got <- cmds
		return nil, nil
	})
	addr := startServer(t, episode)
	c := dial(t, addr, Options{TickCue: true})

	sent := []domain.Command{
		{Actor: 4294967295, Control: domain.ControlValues{Throttle: 0.25, Steer: 1}},
		{Actor: 0, Control: domain.ControlValues{Brake: 0.75, Steer: -1}},
	}
	results, err := c.SubmitBatch(context.Background(), sent)
	require.NoError(t, err)
	assert.Nil(t, results)

	if diff := cmp.Diff(sent, <-got); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_RemoteError(t *testing.T) {
	episode := ports.EpisodeHandleFunc(func(ctx context.Context, cmds []domain.Command) ([]domain.CommandResult, error) {
		return nil, errors.New("episode is not running")
	})
	addr := startServer(t, episode)
	c := dial(t, addr, Options{})

	_, err := c.SubmitBatch(context.Background(), []domain.Command{{Actor: 1}})
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(err)))
	assert.Contains(t, err.Error(), "episode is not running")
}

func TestClient_ContextCanceled(t *testing.T) {
	addr := startServer(t, dryrun.New(nil))
	c := dial(t, addr, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.SubmitBatch(ctx, []domain.Command{{Actor: 1}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDial_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), addr, Options{DialTimeout: 200 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
