package inspect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

func TestRecorderRingBuffer(t *testing.T) {
	rec := NewRecorder(3)
	for i := 1; i <= 5; i++ {
		rec.EffectStarted(reactivity.EffectEvent{ID: uint64(i)})
	}

	events := rec.Events(0)
	require.Len(t, events, 3)
	assert.Equal(t, []uint64{3, 4, 5}, []uint64{events[0].Effect, events[1].Effect, events[2].Effect})
	assert.Equal(t, uint64(5), events[2].Seq)
	assert.Equal(t, uint64(5), rec.Total())

	last := rec.Events(1)
	require.Len(t, last, 1)
	assert.Equal(t, uint64(5), last[0].Effect)
}

func TestRecorderWithEngine(t *testing.T) {
	rec := NewRecorder(0)
	e := reactivity.New(
		reactivity.WithObserver(rec),
		reactivity.WithReadonlyPolicy(reactivity.ReadonlySilent),
	)
	raw := reactivity.ObjectOf(map[string]any{"a": 1})
	state := e.Reactive(raw)

	e.Effect(func() { _ = state.Get("a") }, reactivity.EffectName("view"))
	state.Set("a", 2)
	e.Readonly(raw).Delete("a")

	var types []string
	for _, ev := range rec.Events(0) {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{
		EventEffectStart, EventTrack, EventEffectEnd,
		EventTrigger,
		EventEffectStart, EventTrack, EventEffectEnd,
		EventDiagnostic,
	}, types)

	events := rec.Events(0)
	assert.Equal(t, "SET", events[3].Change)
	assert.Equal(t, "object", events[3].Kind)
	assert.Equal(t, "view", events[0].Name)
	assert.Equal(t, reactivity.CodeReadonlyMutation, events[7].Code)
	assert.Equal(t, "delete", events[7].Op)
}

func TestRecorderSubscribe(t *testing.T) {
	rec := NewRecorder(10)
	id, events, cancel := rec.Subscribe(1)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, rec.Subscribers())

	rec.Diagnosed(reactivity.Diagnostic{Code: "R001"})
	rec.Diagnosed(reactivity.Diagnostic{Code: "R001"})

	select {
	case ev := <-events:
		assert.Equal(t, uint64(1), ev.Seq)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
	assert.Equal(t, uint64(1), rec.Dropped(), "a full subscriber drops instead of blocking")

	cancel()
	cancel()
	assert.Zero(t, rec.Subscribers())
	_, ok := <-events
	assert.False(t, ok, "cancel closes the channel")
}
