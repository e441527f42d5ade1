package reactivity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopDrainFlushesAfterEachTask(t *testing.T) {
	e, _, _ := newTestEngine(t)
	loop := NewLoop(e)
	state := e.Reactive(obj("a", 1))

	var seen []any
	Watch(e, func() any { return state.Get("a") }, func(v, _ any, _ OnInvalidate) {
		seen = append(seen, v)
	}, WithFlush(FlushPost))

	require.NoError(t, loop.Post(func() {
		state.Set("a", 2)
		state.Set("a", 3)
		assert.Empty(t, seen, "post watchers wait for the task to finish")
	}))
	require.NoError(t, loop.Post(func() {
		assert.Equal(t, []any{3}, seen, "flush ran between tasks")
		state.Set("a", 4)
	}))

	assert.Equal(t, 2, loop.Drain())
	assert.Equal(t, []any{3, 4}, seen)
}

func TestLoopRecoversPanics(t *testing.T) {
	e, _, logs := newTestEngine(t)
	loop := NewLoop(e)

	ran := false
	require.NoError(t, loop.Post(func() { panic("task exploded") }))
	require.NoError(t, loop.Post(func() {
		e.QueuePostFlush(func() { panic("job exploded") })
		e.QueuePostFlush(func() { ran = true })
	}))

	assert.Equal(t, 2, loop.Drain())
	assert.True(t, ran, "jobs after a panicking job still run")
	assert.Contains(t, logs.String(), "task exploded")
	assert.Contains(t, logs.String(), "job exploded")
	assert.False(t, e.Tracking())
}

func TestLoopQueueFull(t *testing.T) {
	e, _, logs := newTestEngine(t)
	loop := NewLoop(e, WithQueueSize(1))

	require.NoError(t, loop.Post(func() {}))
	assert.ErrorIs(t, loop.Post(func() {}), ErrQueueFull)
	assert.True(t, strings.Contains(logs.String(), "queue full"))
}

func TestLoopClose(t *testing.T) {
	e, _, _ := newTestEngine(t)
	loop := NewLoop(e)
	loop.Close()
	loop.Close()

	assert.ErrorIs(t, loop.Post(func() {}), ErrLoopClosed)
	assert.NoError(t, loop.Run(context.Background()))
	assert.ErrorIs(t, loop.Do(context.Background(), func() {}), ErrLoopClosed)
}

func TestLoopRunAndDo(t *testing.T) {
	e, _, _ := newTestEngine(t)
	loop := NewLoop(e)
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = loop.Run(ctx)
	}()

	count := NewRef(e, 0)
	for i := 0; i < 10; i++ {
		require.NoError(t, loop.Do(ctx, func() {
			count.Set(count.Peek() + 1)
		}))
	}

	var got int
	require.NoError(t, loop.Do(ctx, func() { got = count.Peek() }))
	assert.Equal(t, 10, got)

	cancel()
	wg.Wait()
	assert.True(t, errors.Is(runErr, context.Canceled))
}

func TestLoopDoHonoursContext(t *testing.T) {
	e, _, _ := newTestEngine(t)
	loop := NewLoop(e)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// Nothing runs the loop, so the task never completes.
	err := loop.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
