package messenger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pullAsync runs Pull in a goroutine and delivers its outcome on the returned channel.
func pullAsync[T any](ctx context.Context, m *Messenger[T]) <-chan pullResult[T] {
	ch := make(chan pullResult[T], 1)
	go func() {
		v, seq, err := m.Pull(ctx)
		ch <- pullResult[T]{v, seq, err}
	}()
	return ch
}

type pullResult[T any] struct {
	v   T
	seq uint64
	err error
}

func TestPushThenPull(t *testing.T) {
	m := New[string]()

	seq := m.Push("a")
	require.Equal(t, uint64(1), seq)

	v, got, err := m.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, uint64(1), got)
}

func TestMostRecentWins(t *testing.T) {
	m := New[string]()

	m.Push("first")
	m.Push("second")

	v, seq, err := m.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", v)
	assert.Equal(t, uint64(2), seq)

	st := m.Stats()
	assert.Equal(t, uint64(2), st.Pushed)
	assert.Equal(t, uint64(1), st.Pulled)
	assert.Equal(t, uint64(1), st.Superseded)

	// The superseded value is never observable.
	ch := pullAsync(context.Background(), m)
	select {
	case r := <-ch:
		t.Fatalf("Pull returned %q without a new Push", r.v)
	case <-time.After(50 * time.Millisecond):
	}
	m.Close()
	r := <-ch
	assert.ErrorIs(t, r.err, ErrClosed)
}

func TestSecondPullBlocksUntilPush(t *testing.T) {
	m := New[int]()
	m.Push(1)

	_, _, err := m.Pull(context.Background())
	require.NoError(t, err)

	ch := pullAsync(context.Background(), m)

	select {
	case r := <-ch:
		t.Fatalf("second Pull returned %v before Push", r)
	case <-time.After(50 * time.Millisecond):
	}

	m.Push(2)

	select {
	case r := <-ch:
		require.NoError(t, r.err)
		assert.Equal(t, 2, r.v)
		assert.Equal(t, uint64(2), r.seq)
	case <-time.After(time.Second):
		t.Fatal("Pull did not wake after Push")
	}
}

func TestCloseUnblocksPull(t *testing.T) {
	m := New[int]()
	ch := pullAsync(context.Background(), m)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, m.Close())

	select {
	case r := <-ch:
		assert.ErrorIs(t, r.err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Pull")
	}
}

func TestClosePreemptsPendingValue(t *testing.T) {
	m := New[int]()
	m.Push(5)
	m.Close()

	_, _, err := m.Pull(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPushAfterCloseIsDiscarded(t *testing.T) {
	m := New[int]()
	m.Close()

	assert.Equal(t, uint64(0), m.Push(1))
	assert.True(t, m.Closed())
	assert.Equal(t, uint64(0), m.Stats().Pushed)

	// Idempotent
	assert.NoError(t, m.Close())
}

func TestCloseAfterDrainDeliversPendingValue(t *testing.T) {
	m := New[int]()
	m.Push(1)
	m.Push(2)
	require.NoError(t, m.CloseAfterDrain())

	v, seq, err := m.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, uint64(2), seq)

	_, _, err = m.Pull(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, m.Closed())
}

func TestCloseAfterDrainUnblocksIdlePull(t *testing.T) {
	m := New[int]()
	m.Push(1)
	_, _, err := m.Pull(context.Background())
	require.NoError(t, err)

	ch := pullAsync(context.Background(), m)
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, m.CloseAfterDrain())

	select {
	case r := <-ch:
		assert.ErrorIs(t, r.err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("CloseAfterDrain did not unblock Pull")
	}
}

func TestCloseAfterDrainRejectsPush(t *testing.T) {
	m := New[int]()
	require.NoError(t, m.CloseAfterDrain())

	assert.Equal(t, uint64(0), m.Push(1))
	_, _, err := m.Pull(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	// Idempotent
	assert.NoError(t, m.CloseAfterDrain())
}

func TestCloseDropsValueLeftByCloseAfterDrain(t *testing.T) {
	m := New[int]()
	m.Push(7)
	require.NoError(t, m.CloseAfterDrain())
	require.NoError(t, m.Close())

	_, _, err := m.Pull(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPullHonoursContext(t *testing.T) {
	m := New[int]()
	ctx, cancel := context.WithCancel(context.Background())

	ch := pullAsync(ctx, m)
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case r := <-ch:
		assert.True(t, errors.Is(r.err, context.Canceled), "err = %v", r.err)
	case <-time.After(time.Second):
		t.Fatal("cancel did not unblock Pull")
	}

	// The messenger remains usable after a cancelled Pull.
	m.Push(9)
	v, _, err := m.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestPullMovesValueOut(t *testing.T) {
	m := New[[]int]()
	m.Push([]int{1, 2, 3})

	_, _, err := m.Pull(context.Background())
	require.NoError(t, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Nil(t, m.slot, "slot should be cleared after Pull")
	assert.False(t, m.full)
}

func TestSequencesStrictlyIncrease(t *testing.T) {
	m := New[int]()
	const pushes = 2000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= pushes; i++ {
			m.Push(i)
		}
		m.Close()
	}()

	var last uint64
	var lastValue int
	for {
		v, seq, err := m.Pull(context.Background())
		if errors.Is(err, ErrClosed) {
			break
		}
		require.NoError(t, err)
		require.Greater(t, seq, last, "sequence went backwards")
		require.Greater(t, v, lastValue, "value went backwards")
		require.Equal(t, uint64(v), seq, "value and sequence out of step")
		last, lastValue = seq, v
	}
	wg.Wait()

	st := m.Stats()
	assert.Equal(t, uint64(pushes), st.Pushed)
	assert.LessOrEqual(t, st.Pulled+st.Superseded, st.Pushed)
}
