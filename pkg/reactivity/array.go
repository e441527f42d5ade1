package reactivity

import "runtime"

// Array is a raw, untracked list. Wrap it with Engine.ReactiveArray (or one
// of its siblings) to make access through the wrapper tracked.
type Array struct {
	id    uint64
	items []any

	views map[*Engine]*[modeCount]*ArrayProxy
}

// NewArray returns an Array holding items. Native maps and slices among the
// items are converted with FromValue.
func NewArray(items ...any) *Array {
	a := &Array{id: nextID(), items: make([]any, len(items))}
	for i, v := range items {
		a.items[i] = FromValue(v)
	}
	return a
}

func (a *Array) handle() uint64         { return a.id }
func (a *Array) targetKind() TargetKind { return KindArray }

func (a *Array) addCleanup(fn func(uint64)) {
	runtime.AddCleanup(a, fn, a.id)
}

// ID returns the handle of the array.
func (a *Array) ID() uint64 {
	return a.id
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.items)
}

// At returns element i, or nil when i is out of range.
func (a *Array) At(i int) any {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// Items returns a copy of the elements.
func (a *Array) Items() []any {
	out := make([]any, len(a.items))
	copy(out, a.items)
	return out
}

// Append adds elements at the end.
func (a *Array) Append(items ...any) {
	a.items = append(a.items, items...)
}

// SetAt writes element i, growing the array with nil elements if needed.
func (a *Array) SetAt(i int, v any) {
	if i >= len(a.items) {
		a.resize(i + 1)
	}
	a.items[i] = v
}

// resize truncates or extends the array to n elements.
func (a *Array) resize(n int) {
	switch {
	case n < len(a.items):
		for i := n; i < len(a.items); i++ {
			a.items[i] = nil
		}
		a.items = a.items[:n]
	case n > len(a.items):
		a.items = append(a.items, make([]any, n-len(a.items))...)
	}
}
