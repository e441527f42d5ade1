package reactivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef(t *testing.T) {
	e, _, _ := newTestEngine(t)
	count := NewRef(e, 0)

	var seen int
	runs := 0
	e.Effect(func() {
		runs++
		seen = count.Get()
	})

	count.Set(1)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 1, seen)

	count.Set(1)
	assert.Equal(t, 2, runs, "same value does not trigger")

	count.Update(func(n int) int { return n + 1 })
	assert.Equal(t, 2, seen)
	assert.Equal(t, 2, count.Peek())
}

func TestRefPeekDoesNotTrack(t *testing.T) {
	e, _, _ := newTestEngine(t)
	r := NewRef(e, "a")

	runs := 0
	e.Effect(func() {
		runs++
		_ = r.Peek()
	})

	r.Set("b")
	assert.Equal(t, 1, runs)
}

func TestRefSetAny(t *testing.T) {
	e, _, _ := newTestEngine(t)
	r := NewRef(e, 1)

	require.NoError(t, r.SetAny(5))
	assert.Equal(t, 5, r.Peek())

	err := r.SetAny("five")
	assert.ErrorIs(t, err, ErrRefType)
	assert.Equal(t, 5, r.Peek())

	require.NoError(t, r.SetAny(nil))
	assert.Zero(t, r.Peek())
}

func TestToRef(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("name", "ada"))
	name := ToRef(state, "name")

	var seen any
	e.Effect(func() { seen = name.Get() })

	state.Set("name", "grace")
	assert.Equal(t, "grace", seen)

	name.Set("linus")
	assert.Equal(t, "linus", state.Raw().fields["name"])
	assert.Equal(t, "linus", seen)
	assert.Equal(t, "name", name.Key())
}

func TestToRefsTracksEnumeration(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1, "b", 2))

	var refs Refs
	runs := 0
	e.Effect(func() {
		runs++
		refs = ToRefs(state)
	})
	require.Len(t, refs, 2)

	state.Set("c", 3)
	assert.Equal(t, 2, runs)
	assert.Len(t, refs, 3)

	require.NoError(t, refs["a"].SetAny(10))
	assert.Equal(t, 10, state.Get("a"))
}

func TestPropertyRefOnReadonly(t *testing.T) {
	e, _, _ := newTestEngine(t, WithReadonlyPolicy(ReadonlySilent))
	r := ToRef(e.Readonly(obj("a", 1)), "a")

	assert.ErrorIs(t, r.SetAny(2), ErrReadonly)
	assert.Equal(t, 1, r.Get())
}

func TestProxyRefs(t *testing.T) {
	e, _, _ := newTestEngine(t)
	count := NewRef(e, 1)
	state := e.Reactive(obj("plain", "x"))
	state.Set("count", count)

	view := ProxyRefs(state)
	assert.Equal(t, 1, view.Get("count"), "ref fields read as their value")
	assert.Equal(t, "x", view.Get("plain"))

	require.NoError(t, view.Set("count", 5))
	assert.Equal(t, 5, count.Peek(), "plain write goes through the ref")
	assert.Same(t, count, state.Raw().fields["count"])

	other := NewRef(e, 9)
	require.NoError(t, view.Set("count", other))
	assert.Same(t, other, state.Raw().fields["count"], "assigning a ref replaces the field")

	require.NoError(t, view.Set("plain", "y"))
	assert.Equal(t, "y", state.Raw().fields["plain"])
	assert.Equal(t, []string{"plain", "count"}, view.Keys())
}

func TestProxyRefsOverFields(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := e.Reactive(obj("a", 1))
	view := ProxyRefs(ToRefs(state).Fields())

	var seen any
	e.Effect(func() { seen = view.Get("a") })

	require.NoError(t, view.Set("a", 2))
	assert.Equal(t, 2, seen)
	assert.Equal(t, []string{"a"}, view.Keys())

	assert.True(t, IsRef(NewRef(e, 0)))
	assert.False(t, IsRef(state))
	assert.Equal(t, 2, Unref(ToRef(state, "a")))
	assert.Equal(t, "v", Unref("v"))
}
