package reactivity

// ArrayProxy is the tracked view of an *Array.
//
// Index reads subscribe to that index, Len and enumeration subscribe to the
// length. Writing an index at or past the end is an addition and also
// triggers length subscribers; shrinking the length triggers every
// subscriber of a removed index.
type ArrayProxy struct {
	engine *Engine
	raw    *Array
	mode   Mode
}

// Raw returns the wrapped array.
func (p *ArrayProxy) Raw() *Array {
	return p.raw
}

// Engine returns the engine the proxy belongs to.
func (p *ArrayProxy) Engine() *Engine {
	return p.engine
}

// Mode returns the wrapping mode.
func (p *ArrayProxy) Mode() Mode {
	return p.mode
}

// IsReadonly reports whether writes through p are refused.
func (p *ArrayProxy) IsReadonly() bool {
	return p.mode.Readonly()
}

// IsShallow reports whether elements are returned raw.
func (p *ArrayProxy) IsShallow() bool {
	return p.mode.Shallow()
}

func (p *ArrayProxy) wrap(v any) any {
	if p.mode.Shallow() {
		return v
	}
	return p.engine.wrapNested(v, p.mode&ModeReadonly)
}

// Get returns element i, or nil when i is out of range.
func (p *ArrayProxy) Get(i int) any {
	if !p.mode.Readonly() {
		p.engine.track(p.raw, i)
	}
	return p.wrap(p.raw.At(i))
}

// Set writes element i. Negative indices are ignored.
func (p *ArrayProxy) Set(i int, value any) {
	if p.mode.Readonly() {
		p.engine.refuse(OpSet, p.raw, i)
		return
	}
	p.set(i, value)
}

func (p *ArrayProxy) set(i int, value any) {
	if i < 0 {
		return
	}
	value = ToRaw(value)
	add := i >= p.raw.Len()
	old := p.raw.At(i)
	p.raw.SetAt(i, value)

	switch {
	case add:
		p.engine.trigger(p.raw, i, ChangeAdd, value)
	case !SameValue(old, value):
		p.engine.trigger(p.raw, i, ChangeSet, value)
	}
}

// Len returns the number of elements. Only mutable proxies track the length.
func (p *ArrayProxy) Len() int {
	if !p.mode.Readonly() {
		p.engine.track(p.raw, lengthKey)
	}
	return p.raw.Len()
}

// SetLen truncates or extends the array with nil elements. Truncation
// triggers subscribers of every removed index. Negative lengths are ignored.
func (p *ArrayProxy) SetLen(n int) {
	if p.mode.Readonly() {
		p.engine.refuse(OpSetLength, p.raw, lengthKey)
		return
	}
	p.setLen(n)
}

func (p *ArrayProxy) setLen(n int) {
	if n < 0 || n == p.raw.Len() {
		return
	}
	p.raw.resize(n)
	p.engine.trigger(p.raw, lengthKey, ChangeSet, n)
}

// Has reports whether i is a valid index.
func (p *ArrayProxy) Has(i int) bool {
	p.engine.track(p.raw, i)
	return i >= 0 && i < p.raw.Len()
}

// Keys returns the valid indices, subscribing to the length.
func (p *ArrayProxy) Keys() []int {
	p.engine.track(p.raw, lengthKey)
	keys := make([]int, p.raw.Len())
	for i := range keys {
		keys[i] = i
	}
	return keys
}

// Values returns every element, subscribing to the length and to each index.
func (p *ArrayProxy) Values() []any {
	n := p.Len()
	out := make([]any, n)
	for i := range out {
		out[i] = p.Get(i)
	}
	return out
}

// Delete clears element i to nil without changing the length and reports
// whether i was in range. A readonly proxy refuses and reports true.
func (p *ArrayProxy) Delete(i int) bool {
	if p.mode.Readonly() {
		p.engine.refuse(OpDelete, p.raw, i)
		return true
	}
	if i < 0 || i >= p.raw.Len() {
		return false
	}
	p.raw.items[i] = nil
	p.engine.trigger(p.raw, i, ChangeDelete, nil)
	return true
}

// Includes reports whether the array holds v. Elements are compared first
// as seen through the proxy, then in their raw form, so both a wrapper and
// its raw target are found.
func (p *ArrayProxy) Includes(v any) bool {
	return p.search(v, SameValue, false) >= 0
}

// IndexOf returns the first index holding v, or -1. NaN is never found.
func (p *ArrayProxy) IndexOf(v any) int {
	return p.search(v, strictEqual, false)
}

// LastIndexOf returns the last index holding v, or -1.
func (p *ArrayProxy) LastIndexOf(v any) int {
	return p.search(v, strictEqual, true)
}

func (p *ArrayProxy) search(v any, eq func(a, b any) bool, reverse bool) int {
	n := p.Len()
	find := func(at func(int) any) int {
		for k := 0; k < n; k++ {
			i := k
			if reverse {
				i = n - 1 - k
			}
			if eq(at(i), v) {
				return i
			}
		}
		return -1
	}
	if i := find(p.Get); i >= 0 {
		return i
	}
	return find(p.raw.At)
}

// mutate runs fn with tracking paused so that the length reads a mutator
// performs internally do not subscribe the running effect. Two effects that
// both push onto the same array would otherwise re-run each other forever.
func (p *ArrayProxy) mutate(op Op, fn func()) bool {
	if p.mode.Readonly() {
		p.engine.refuse(op, p.raw, lengthKey)
		return false
	}
	p.engine.pauseTracking()
	defer p.engine.resetTracking()
	fn()
	return true
}

// Push appends items and returns the new length.
func (p *ArrayProxy) Push(items ...any) int {
	p.mutate(OpPush, func() {
		for _, v := range items {
			p.set(p.raw.Len(), v)
		}
	})
	return p.raw.Len()
}

// Pop removes and returns the last element, or nil when the array is empty.
func (p *ArrayProxy) Pop() any {
	var last any
	p.mutate(OpPop, func() {
		n := p.raw.Len()
		if n == 0 {
			return
		}
		last = p.wrap(p.raw.At(n - 1))
		p.setLen(n - 1)
	})
	return last
}

// Shift removes and returns the first element, or nil when the array is empty.
func (p *ArrayProxy) Shift() any {
	var first any
	p.mutate(OpShift, func() {
		n := p.raw.Len()
		if n == 0 {
			return
		}
		first = p.wrap(p.raw.At(0))
		for k := 1; k < n; k++ {
			p.set(k-1, p.raw.At(k))
		}
		p.setLen(n - 1)
	})
	return first
}

// Unshift inserts items at the front and returns the new length.
func (p *ArrayProxy) Unshift(items ...any) int {
	p.mutate(OpUnshift, func() {
		n, m := p.raw.Len(), len(items)
		if m == 0 {
			return
		}
		for k := n - 1; k >= 0; k-- {
			p.set(k+m, p.raw.At(k))
		}
		for j, v := range items {
			p.set(j, v)
		}
	})
	return p.raw.Len()
}

// Splice removes deleteCount elements at start, inserts items in their place
// and returns the removed elements. A negative start counts from the end.
func (p *ArrayProxy) Splice(start, deleteCount int, items ...any) []any {
	var removed []any
	p.mutate(OpSplice, func() {
		n := p.raw.Len()
		switch {
		case start < 0:
			start = max(n+start, 0)
		case start > n:
			start = n
		}
		deleteCount = min(max(deleteCount, 0), n-start)

		removed = make([]any, deleteCount)
		for i := range removed {
			removed[i] = p.wrap(p.raw.At(start + i))
		}

		tail := append([]any(nil), p.raw.items[start+deleteCount:]...)
		for i, v := range append(append([]any(nil), items...), tail...) {
			p.set(start+i, v)
		}
		p.setLen(n - deleteCount + len(items))
	})
	return removed
}
