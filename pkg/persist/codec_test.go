package persist

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

func TestEncodeKeepsKeyOrder(t *testing.T) {
	o := reactivity.NewObject().
		With("zeta", 1).
		With("alpha", reactivity.NewArray("x", true, nil, 2.5)).
		With("mid", reactivity.NewObject().With("b", "B").With("a", "A"))

	data, err := Encode(o)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":["x",true,null,2.5],"mid":{"b":"B","a":"A"}}`, string(data))

	back, err := Decode(data)
	require.NoError(t, err)
	obj, ok := back.(*reactivity.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, obj.Keys())

	again, err := Encode(obj)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestEncodeWrappersAndRefs(t *testing.T) {
	e := reactivity.New()
	inner := reactivity.NewObject().With("n", 1)
	state := e.Reactive(reactivity.NewObject().With("inner", inner))

	data, err := Encode(state)
	require.NoError(t, err)
	assert.Equal(t, `{"inner":{"n":1}}`, string(data))

	data, err = Encode(reactivity.NewRef(e, "v"))
	require.NoError(t, err)
	assert.Equal(t, `"v"`, string(data))
}

func TestEncodeSharedValueIsNotACycle(t *testing.T) {
	shared := reactivity.NewObject().With("n", 1)
	o := reactivity.NewObject().With("a", shared).With("b", shared)

	data, err := Encode(o)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"n":1},"b":{"n":1}}`, string(data))
}

func TestEncodeErrors(t *testing.T) {
	o := reactivity.NewObject()
	o.Set("self", o)
	_, err := Encode(o)
	assert.ErrorIs(t, err, ErrCycle)

	_, err = Encode(reactivity.NewArray(math.NaN()))
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	v, err := Decode([]byte(`{"i": 3, "f": 1.5, "big": 1e400, "s": "x", "list": [1, {"k": null}]}`))
	if err == nil {
		t.Fatalf("expected out-of-range number to fail, got %v", v)
	}

	v, err = Decode([]byte(`{"i": 3, "f": 1.5, "s": "x", "list": [1, {"k": null}]}`))
	require.NoError(t, err)
	o := v.(*reactivity.Object)

	i, _ := o.Get("i")
	assert.Equal(t, 3, i)
	f, _ := o.Get("f")
	assert.Equal(t, 1.5, f)
	list, _ := o.Get("list")
	require.IsType(t, &reactivity.Array{}, list)
	assert.Equal(t, 2, list.(*reactivity.Array).Len())

	_, err = Decode([]byte(`{"a":1} {"b":2}`))
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = Decode([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := NewSnapshot(reactivity.NewObject().With("count", 2))
	require.NotEmpty(t, snap.ID)

	data, err := EncodeSnapshot(snap)
	require.NoError(t, err)

	back, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, back.ID)
	assert.True(t, snap.SavedAt.Equal(back.SavedAt))
	count, _ := back.State.(*reactivity.Object).Get("count")
	assert.Equal(t, 2, count)

	_, err = DecodeSnapshot([]byte(`{"id":"x"}`))
	assert.Error(t, err)
}
