package scenario

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactivity/internal/errors"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

func codeOf(t *testing.T, err error) *errors.Error {
	t.Helper()
	var ce *errors.Error
	require.True(t, stderrors.As(err, &ce), "expected a coded error, got %v", err)
	return ce
}

func TestLoadFile(t *testing.T) {
	sc, err := LoadFile(filepath.Join("testdata", "cart.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "cart", sc.Name)
	assert.Equal(t, filepath.Join("testdata", "cart.yaml"), sc.File)
	assert.Equal(t, []Effect{{Name: "user", Path: "user"}, {Name: "count", Path: "items.length"}}, sc.Effects)
	assert.Equal(t, []string{"user", "tags.0"}, sc.Computed[0].Paths)
	require.Len(t, sc.Watches, 1)
	assert.True(t, sc.Watches[0].Deep)
	assert.Equal(t, 17, sc.Watches[0].Line)
	require.Len(t, sc.Steps, 5)
	assert.Equal(t, OpPush, sc.Steps[1].Op)
	assert.Equal(t, 23, sc.Steps[1].Line)
}

func TestParseJSON(t *testing.T) {
	sc, err := Parse([]byte(`{"state": {"n": 1}, "steps": [{"op": "set", "path": "n", "value": 2}]}`))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 1)
	assert.Equal(t, "n", sc.Steps[0].Path)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
	}{
		{"empty", ``, "S201"},
		{"unknown field", "state: {}\nextra: 1\n", "S201"},
		{"state not mapping", "state: [1, 2]\n", "S201"},
		{"unknown op", "steps:\n  - op: explode\n", "S203"},
		{"flush mode", "watches:\n  - {name: w, path: a, flush: later}\n", "S205"},
		{"duplicate", "effects:\n  - {name: a, path: x}\nwatches:\n  - {name: a, path: x}\n", "S206"},
		{"unnamed computed", "computed:\n  - {paths: [a]}\n", "S206"},
		{"computed op", "computed:\n  - {name: c, op: avg, paths: [a]}\n", "S201"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Equal(t, tt.code, codeOf(t, err).Code)
		})
	}
}

func TestLoadFileLocatesStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("state: {}\nsteps:\n  - op: set\n    path: a\n  - op: explode\n"), 0o644))

	_, err := LoadFile(path)
	ce := codeOf(t, err)
	assert.Equal(t, "S203", ce.Code)
	require.NotNil(t, ce.Location)
	assert.Equal(t, path, ce.Location.File)
	assert.Equal(t, 5, ce.Location.Line)
	assert.NotEmpty(t, ce.Context)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, "S201", codeOf(t, err).Code)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNodeValueKeepsOrder(t *testing.T) {
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("z: 1\na: [x, 2.5, true, null]\nm: {k: v}\n"), &n))

	v, err := nodeValue(&n)
	require.NoError(t, err)
	obj, ok := v.(*reactivity.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	a, _ := obj.Get("a")
	arr, ok := a.(*reactivity.Array)
	require.True(t, ok)
	assert.Equal(t, []any{"x", 2.5, true, nil}, arr.Items())
	assert.Equal(t, `{"z":1,"a":["x",2.5,true,null],"m":{"k":"v"}}`, render(obj))
}

func TestResolve(t *testing.T) {
	e := reactivity.New()
	root := e.Reactive(reactivity.ObjectOf(map[string]any{
		"items": []any{map[string]any{"name": "a"}},
		"n":     1,
	}))

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"n", 1, true},
		{"items.length", 1, true},
		{"items.0.name", "a", true},
		{"items.1", nil, false},
		{"items.x", nil, false},
		{"n.deeper", nil, false},
		{"missing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := resolve(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}

	got, ok := resolve(root, "")
	assert.True(t, ok)
	assert.Same(t, root, got)
}

func TestCombine(t *testing.T) {
	assert.Equal(t, 6, sum([]any{1, 2, 3}))
	assert.Equal(t, 3.5, sum([]any{1, 2.5, "skip", nil}))
	assert.Equal(t, 0, sum(nil))
	assert.Equal(t, "ab1", concat([]any{"a", nil, "b", 1}))
}
