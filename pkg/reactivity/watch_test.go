package reactivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	newValue, oldValue any
}

func collect(calls *[]change) WatchCallback[any] {
	return func(newValue, oldValue any, _ OnInvalidate) {
		*calls = append(*calls, change{newValue, oldValue})
	}
}

func TestWatchSync(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1))

	var calls []change
	Watch(e, func() any { return state.Get("a") }, collect(&calls))
	assert.Empty(t, calls, "no callback without Immediate")

	state.Set("a", 2)
	state.Set("a", 3)
	assert.Equal(t, []change{{2, 1}, {3, 2}}, calls)
}

func TestWatchImmediate(t *testing.T) {
	e, _, _ := newTestEngine(t)
	n := NewRef(e, 5)

	var got [][2]int
	Watch(e, n.Get, func(newValue, oldValue int, _ OnInvalidate) {
		got = append(got, [2]int{newValue, oldValue})
	}, Immediate())
	require.Equal(t, [][2]int{{5, 0}}, got, "immediate run sees a zero old value")

	n.Set(6)
	assert.Equal(t, [][2]int{{5, 0}, {6, 5}}, got)
}

func TestWatchPostFlushRunsAfterWrite(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1))

	var calls []change
	Watch(e, func() any { return state.Get("a") }, collect(&calls), WithFlush(FlushPost))

	state.Set("a", 2)
	assert.Empty(t, calls, "post callbacks never run during the write")
	state.Set("a", 3)
	assert.Equal(t, 1, e.PendingJobs(), "one queued job per watcher")

	assert.Equal(t, 1, e.Flush())
	assert.Equal(t, []change{{3, 1}}, calls)
	assert.Zero(t, e.Flush())
}

func TestWatchOnInvalidate(t *testing.T) {
	e, _, _ := newTestEngine(t)
	q := NewRef(e, "a")

	var log []string
	stop := Watch(e, q.Get, func(newValue, _ string, onInvalidate OnInvalidate) {
		log = append(log, "run "+newValue)
		onInvalidate(func() { log = append(log, "cancel "+newValue) })
	})

	q.Set("b")
	q.Set("c")
	assert.Equal(t, []string{"run b", "cancel b", "run c"}, log)

	stop()
	assert.Equal(t, []string{"run b", "cancel b", "run c", "cancel c"}, log)

	stop()
	q.Set("d")
	assert.Len(t, log, 4, "a stopped watcher never calls back")
}

func TestWatchStopDropsQueuedJob(t *testing.T) {
	e, _, _ := newTestEngine(t)
	n := NewRef(e, 1)

	calls := 0
	stop := Watch(e, n.Get, func(int, int, OnInvalidate) { calls++ }, WithFlush(FlushPost))

	n.Set(2)
	stop()
	e.Flush()
	assert.Zero(t, calls)
}

func TestWatchTargetDeep(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("user", map[string]any{
		"name": "ada",
		"tags": []any{"x"},
	}))

	calls := 0
	WatchTarget(e, state, func(newValue, oldValue any, _ OnInvalidate) {
		calls++
		assert.Same(t, state, newValue)
		assert.Same(t, state, oldValue)
	})

	user := state.Get("user").(*Proxy)
	user.Set("name", "grace")
	assert.Equal(t, 1, calls)

	user.Get("tags").(*ArrayProxy).Push("y")
	assert.Equal(t, 2, calls)

	state.Set("extra", true)
	assert.Equal(t, 3, calls)
}

func TestWatchTargetDepth(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("top", 1, "nested", map[string]any{"deep": 1}))

	calls := 0
	WatchTarget(e, state, func(any, any, OnInvalidate) { calls++ }, WatchDepth(1))

	state.Get("nested").(*Proxy).Set("deep", 2)
	assert.Zero(t, calls, "keys below the depth bound are not watched")

	state.Set("top", 2)
	assert.Equal(t, 1, calls)
}

func TestWatchTargetCycle(t *testing.T) {
	e, _, _ := newTestEngine(t)
	raw := obj("n", 1)
	raw.Set("self", raw)
	state := e.Reactive(raw)

	calls := 0
	WatchTarget(e, state, func(any, any, OnInvalidate) { calls++ })

	state.Set("n", 2)
	assert.Equal(t, 1, calls)
}

func TestWatchTargetRef(t *testing.T) {
	e, _, _ := newTestEngine(t)
	r := NewRef[any](e, e.Reactive(obj("a", 1)))

	var calls []change
	WatchTarget(e, r, collect(&calls))

	r.Peek().(*Proxy).Set("a", 2)
	require.Len(t, calls, 1, "a ref target is watched through its value")

	next := e.Reactive(obj("a", 3))
	r.Set(next)
	require.Len(t, calls, 2)
	assert.Same(t, next, calls[1].newValue)
}

func TestFlushRunsJobsQueuedByJobs(t *testing.T) {
	e, _, _ := newTestEngine(t)

	var order []int
	e.QueuePostFlush(func() {
		order = append(order, 1)
		e.QueuePostFlush(func() { order = append(order, 3) })
		assert.Zero(t, e.Flush(), "nested flush is a no-op")
	})
	e.QueuePostFlush(func() { order = append(order, 2) })

	assert.Equal(t, 3, e.Flush())
	assert.Equal(t, []int{1, 2, 3}, order)
}
