package actor_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/recalc/internal/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n int
}

func (c *counter) Receive(ctx context.Context, msg any) (any, error) {
	switch m := msg.(type) {
	case int:
		c.n += m
		return c.n, nil
	case string:
		return nil, errors.New(m)
	}
	panic("unexpected message")
}

func TestSystem_CallSerializesMessages(t *testing.T) {
	sys := actor.NewSystem()
	defer sys.Shutdown(context.Background())

	ref, err := sys.Spawn("counter", &counter{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ref.Call(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := sys.Call(context.Background(), "counter", 0)
	require.NoError(t, err)
	assert.Equal(t, 100, got)
}

func TestSystem_Errors(t *testing.T) {
	sys := actor.NewSystem()
	defer sys.Shutdown(context.Background())

	_, err := sys.Spawn("c", &counter{})
	require.NoError(t, err)

	t.Run("DuplicateSpawn", func(t *testing.T) {
		_, err := sys.Spawn("c", &counter{})
		assert.ErrorIs(t, err, actor.ErrExists)
	})

	t.Run("HandlerError", func(t *testing.T) {
		_, err := sys.Call(context.Background(), "c", "boom")
		assert.EqualError(t, err, "boom")
	})

	t.Run("PanicIsRecovered", func(t *testing.T) {
		_, err := sys.Call(context.Background(), "c", 1.5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")

		got, err := sys.Call(context.Background(), "c", 0)
		require.NoError(t, err)
		assert.Equal(t, 0, got)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := sys.Call(context.Background(), "missing", 1)
		assert.ErrorIs(t, err, actor.ErrNotFound)
	})

	t.Run("Stopped", func(t *testing.T) {
		ref, err := sys.Spawn("short-lived", &counter{})
		require.NoError(t, err)
		require.NoError(t, sys.Stop("short-lived"))

		_, err = ref.Call(context.Background(), 1)
		assert.ErrorIs(t, err, actor.ErrStopped)

		_, err = sys.Resolve("short-lived")
		assert.ErrorIs(t, err, actor.ErrNotFound)
	})
}

// pinger calls its peer, which may call back into it.
type pinger struct {
	sys   *actor.System
	peer  actor.Address
	calls int
}

func (p *pinger) Receive(ctx context.Context, msg any) (any, error) {
	p.calls++
	depth := msg.(int)
	if depth == 0 {
		return p.calls, nil
	}
	return p.sys.Call(ctx, p.peer, depth-1)
}

func TestSystem_ReentrantCallsDoNotDeadlock(t *testing.T) {
	sys := actor.NewSystem()
	defer sys.Shutdown(context.Background())

	a := &pinger{sys: sys, peer: "b"}
	b := &pinger{sys: sys, peer: "a"}
	_, err := sys.Spawn("a", a)
	require.NoError(t, err)
	_, err = sys.Spawn("b", b)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := sys.Call(context.Background(), "a", 5)
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("re-entrant call chain deadlocked")
	}
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 3, b.calls)
}

func TestChain(t *testing.T) {
	sys := actor.NewSystem()
	defer sys.Shutdown(context.Background())

	var seen []actor.Address
	_, err := sys.Spawn("inner", actor.ReceiverFunc(func(ctx context.Context, msg any) (any, error) {
		seen = actor.Chain(ctx)
		return nil, nil
	}))
	require.NoError(t, err)
	_, err = sys.Spawn("outer", actor.ReceiverFunc(func(ctx context.Context, msg any) (any, error) {
		return sys.Call(ctx, "inner", msg)
	}))
	require.NoError(t, err)

	_, err = sys.Call(context.Background(), "outer", nil)
	require.NoError(t, err)
	assert.Equal(t, []actor.Address{"inner", "outer"}, seen)
}

func TestSystem_Shutdown(t *testing.T) {
	sys := actor.NewSystem(actor.WithMailboxSize(1))

	var handled atomic.Int32
	for _, addr := range []actor.Address{"x", "y", "z"} {
		_, err := sys.Spawn(addr, actor.ReceiverFunc(func(ctx context.Context, msg any) (any, error) {
			handled.Add(1)
			return nil, nil
		}))
		require.NoError(t, err)
	}
	_, err := sys.Call(context.Background(), "x", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sys.Shutdown(ctx))
	assert.Equal(t, 0, sys.Len())
	assert.Equal(t, int32(1), handled.Load())
}

func TestNewAddress(t *testing.T) {
	a := actor.NewAddress("variable")
	b := actor.NewAddress("variable")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a.String(), "variable/")
}
