package reactivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectRunsOnCreate(t *testing.T) {
	e, _, _ := newTestEngine(t)

	ran := 0
	e.Effect(func() { ran++ })

	assert.Equal(t, 1, ran, "effect should run immediately on creation")
}

func TestEffectRerunsOncePerWrite(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1))

	var seen any
	runs := 0
	e.Effect(func() {
		runs++
		seen = state.Get("a")
	})
	require.Equal(t, 1, runs)

	state.Set("a", 2)
	assert.Equal(t, 2, seen, "write must be visible synchronously")
	assert.Equal(t, 2, runs)

	state.Set("a", 2)
	assert.Equal(t, 2, runs, "writing the same value must not re-run")

	state.Set("a", 3)
	assert.Equal(t, 3, runs)
}

func TestEffectBranchSwitching(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("ok", true, "x", "left", "y", "right"))

	var out any
	runs := 0
	e.Effect(func() {
		runs++
		if state.Get("ok").(bool) {
			out = state.Get("x")
		} else {
			out = state.Get("y")
		}
	})
	require.Equal(t, "left", out)

	state.Set("ok", false)
	require.Equal(t, 2, runs)
	require.Equal(t, "right", out)

	state.Set("x", "changed")
	assert.Equal(t, 2, runs, "abandoned branch must not re-run the effect")

	state.Set("y", "changed")
	assert.Equal(t, 3, runs)
	assert.Equal(t, "changed", out)
}

func TestEffectLazyAndValue(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1))

	runs := 0
	eff := e.EffectValue(func() any {
		runs++
		return state.Get("a").(int) * 10
	}, Lazy())

	assert.Equal(t, 0, runs, "lazy effect must not run on creation")
	assert.Equal(t, 10, eff.Run())
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, eff.Deps())
}

func TestEffectScheduler(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1))

	var scheduled []*Effect
	runs := 0
	eff := e.Effect(func() {
		runs++
		_ = state.Get("a")
	}, WithScheduler(func(eff *Effect) {
		scheduled = append(scheduled, eff)
	}))

	state.Set("a", 2)
	assert.Equal(t, 1, runs, "scheduler replaces the inline re-run")
	require.Len(t, scheduled, 1)
	assert.Same(t, eff, scheduled[0])

	scheduled[0].Run()
	assert.Equal(t, 2, runs)
}

func TestEffectSelfIncrementDoesNotRecurse(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("n", 0))

	runs := 0
	e.Effect(func() {
		runs++
		state.Set("n", state.Get("n").(int)+1)
	})

	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, state.Raw().fields["n"])

	state.Set("n", 10)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 11, state.Raw().fields["n"])
}

func TestNestedEffects(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("outer", 1, "inner", 1, "after", 1))

	outerRuns, innerRuns := 0, 0
	e.Effect(func() {
		outerRuns++
		_ = state.Get("outer")
		e.Effect(func() {
			innerRuns++
			_ = state.Get("inner")
		})
		_ = state.Get("after")
	})
	require.Equal(t, 1, outerRuns)
	require.Equal(t, 1, innerRuns)

	state.Set("inner", 2)
	assert.Equal(t, 1, outerRuns, "inner read must not subscribe the outer effect")
	assert.Equal(t, 2, innerRuns)

	state.Set("after", 2)
	assert.Equal(t, 2, outerRuns, "outer effect must be active again after the inner one")
}

func TestEffectPanicRestoresTrackingStack(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1, "b", 1))

	assert.PanicsWithValue(t, "boom", func() {
		e.Effect(func() {
			_ = state.Get("a")
			panic("boom")
		})
	})
	assert.False(t, e.Tracking(), "no effect may stay active after a panic")
	assert.Equal(t, 1, rec.panics)

	// A read outside any effect must not be attributed to the failed one.
	_ = state.Get("b")
	runs := 0
	e.Effect(func() {
		runs++
		_ = state.Get("b")
	})
	state.Set("b", 2)
	assert.Equal(t, 2, runs)
}

func TestEffectStop(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1))

	runs := 0
	eff := e.Effect(func() {
		runs++
		_ = state.Get("a")
	}, EffectName("render"))
	assert.Equal(t, "render", eff.Name())
	assert.True(t, eff.Active())

	eff.Stop()
	eff.Stop()
	assert.False(t, eff.Active())
	assert.Zero(t, eff.Deps())

	state.Set("a", 2)
	assert.Equal(t, 1, runs)

	// Running a stopped effect executes the thunk without tracking.
	eff.Run()
	assert.Equal(t, 2, runs)
	state.Set("a", 3)
	assert.Equal(t, 2, runs)
}

func TestEffectStoppingItselfMidRun(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1, "b", 2))

	var eff *Effect
	eff = e.Effect(func() {
		_ = state.Get("a")
		eff.Stop()
		_ = state.Get("b")
	}, Lazy())
	eff.Run()

	assert.False(t, eff.Active())
	assert.Zero(t, eff.Deps())
	st := e.Stats()
	assert.Zero(t, st.Subscriptions)
	assert.Zero(t, st.Effects)
}

func TestTriggerOrderFollowsCreation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1))

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		e.Effect(func() {
			_ = state.Get("a")
			order = append(order, name)
		})
	}
	order = nil

	state.Set("a", 2)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestTriggerSkipsEffectStoppedInSameRound(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1))

	var second *Effect
	secondRuns := 0
	e.Effect(func() {
		if state.Get("a").(int) > 1 {
			second.Stop()
		}
	})
	second = e.Effect(func() {
		secondRuns++
		_ = state.Get("a")
	})

	state.Set("a", 2)
	assert.Equal(t, 1, secondRuns)
}

func TestUntracked(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1, "b", 1))

	runs := 0
	e.Effect(func() {
		runs++
		_ = state.Get("a")
		e.Untracked(func() {
			assert.False(t, e.Tracking())
			_ = state.Get("b")
		})
		assert.True(t, e.Tracking())
	})

	state.Set("b", 2)
	assert.Equal(t, 1, runs)
	state.Set("a", 2)
	assert.Equal(t, 2, runs)
}

func TestEffectTriggeredFromUntrackedSectionStillTracks(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1, "b", 1))

	runs := 0
	e.Effect(func() {
		runs++
		_ = state.Get("a")
		_ = state.Get("b")
	})

	e.Untracked(func() {
		state.Set("a", 2)
	})
	require.Equal(t, 2, runs)

	state.Set("b", 2)
	assert.Equal(t, 3, runs, "re-run inside a paused section must still subscribe")
}

func TestEnginesAreIsolated(t *testing.T) {
	e1, _, _ := newTestEngine(t)
	e2, _, _ := newTestEngine(t)
	raw := obj("a", 1)

	runs := 0
	e1.Effect(func() {
		runs++
		_ = e1.Reactive(raw).Get("a")
	})

	e2.Reactive(raw).Set("a", 2)
	assert.Equal(t, 1, runs, "writes through another engine are not observed")
	assert.NotSame(t, e1.Reactive(raw), e2.Reactive(raw))
}

func TestObserverEvents(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1))

	eff := e.Effect(func() {
		_ = state.Get("a")
		_ = state.Get("a")
	}, EffectName("view"))

	require.Len(t, rec.tracks, 1, "repeated reads subscribe once")
	assert.Equal(t, "a", rec.tracks[0].Key)
	assert.Equal(t, KindObject, rec.tracks[0].Kind)
	assert.Equal(t, eff.ID(), rec.tracks[0].Effect)

	state.Set("a", 2)
	require.Len(t, rec.triggers, 1)
	assert.Equal(t, ChangeSet, rec.triggers[0].Change)
	assert.Equal(t, 1, rec.triggers[0].Effects)
	assert.Equal(t, state.Raw().ID(), rec.triggers[0].Target)

	require.Len(t, rec.started, 2)
	assert.Equal(t, "view", rec.started[1].Name)
	assert.Equal(t, 1, rec.started[1].Depth)
}
