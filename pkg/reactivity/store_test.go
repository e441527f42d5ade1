package reactivity

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCountsSubscriptions(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1, "b", 2))

	eff := e.Effect(func() {
		_ = state.Get("a")
		_ = state.Get("b")
		_ = state.Keys()
	})
	e.Effect(func() { _ = state.Get("a") })

	st := e.Stats()
	assert.Equal(t, 1, st.Records)
	assert.Equal(t, 3, st.Keys)
	assert.Equal(t, 4, st.Subscriptions)
	assert.Equal(t, 2, st.Effects)

	eff.Stop()
	st = e.Stats()
	assert.Equal(t, 1, st.Keys, "empty dep sets are dropped")
	assert.Equal(t, 1, st.Subscriptions)
}

func TestCleanupDropsAbandonedBranch(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("ok", true, "x", 1))

	e.Effect(func() {
		if state.Get("ok").(bool) {
			_ = state.Get("x")
		}
	})
	require.Equal(t, 2, e.Stats().Keys)

	state.Set("ok", false)
	assert.Equal(t, 1, e.Stats().Keys)
}

// subscribeAndForget tracks a fresh object from an effect that is stopped
// before returning, leaving nothing that references the object.
func subscribeAndForget(e *Engine) {
	state := e.Reactive(obj("a", 1))
	eff := e.Effect(func() { _ = state.Get("a") })
	eff.Stop()
}

func TestRecordReleasedWhenTargetCollected(t *testing.T) {
	e, _, _ := newTestEngine(t)
	subscribeAndForget(e)
	require.Equal(t, 1, e.Stats().Records)

	require.Eventually(t, func() bool {
		runtime.GC()
		return e.Stats().Records == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1), e.Stats().Released)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "<iterate>", KeyString(iterateKey))
	assert.Equal(t, "length", KeyString(lengthKey))
	assert.Equal(t, "name", KeyString("name"))
	assert.Equal(t, "3", KeyString(3))
	assert.Equal(t, "array", KindArray.String())
	assert.Equal(t, "ADD", ChangeAdd.String())
}

func TestSameValue(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"equal ints", 1, 1, true},
		{"different ints", 1, 2, false},
		{"int vs float", 1, 1.0, false},
		{"nan", nan, nan, true},
		{"nil", nil, nil, true},
		{"nil vs value", nil, 0, false},
		{"slices", []int{1}, []int{1}, true},
		{"maps", map[string]int{"a": 1}, map[string]int{"a": 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameValue(tt.a, tt.b))
		})
	}
	assert.False(t, strictEqual(nan, nan))
}
