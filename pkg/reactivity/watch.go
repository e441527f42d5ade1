package reactivity

// FlushMode selects when a watcher callback runs after a change.
type FlushMode uint8

const (
	// FlushSync runs the callback inside the write that triggered it.
	FlushSync FlushMode = iota

	// FlushPost queues the callback on the engine's post-flush queue. It runs
	// on the next Engine.Flush, which the Loop calls after every task.
	FlushPost
)

// String returns the mode name.
func (m FlushMode) String() string {
	if m == FlushPost {
		return "post"
	}
	return "sync"
}

// OnInvalidate registers a function to run before the next callback
// invocation, or when the watcher is stopped. Only the most recently
// registered function is kept.
type OnInvalidate func(fn func())

// WatchCallback is called with the new and previous value of a watched
// source.
type WatchCallback[T any] func(newValue, oldValue T, onInvalidate OnInvalidate)

// StopHandle stops a watcher. Calling it more than once is harmless.
type StopHandle func()

// WatchOption configures a watcher.
type WatchOption func(*watchConfig)

type watchConfig struct {
	immediate bool
	flush     FlushMode
	depth     int
	name      string
}

// Immediate runs the callback once at creation with a zero old value.
func Immediate() WatchOption {
	return func(c *watchConfig) {
		c.immediate = true
	}
}

// WithFlush sets the flush mode. The default is FlushSync.
func WithFlush(m FlushMode) WatchOption {
	return func(c *watchConfig) {
		c.flush = m
	}
}

// WatchDepth bounds how many levels of nested objects WatchTarget reads.
// A depth of 1 watches only the keys of the target itself. Zero, the
// default, means no bound.
func WatchDepth(n int) WatchOption {
	return func(c *watchConfig) {
		c.depth = n
	}
}

// WatchName labels the watcher's effect in observer events.
func WatchName(name string) WatchOption {
	return func(c *watchConfig) {
		c.name = name
	}
}

// Watch calls cb whenever a value read by source changes.
//
// Example:
//
//	stop := reactivity.Watch(e,
//	    func() any { return state.Get("query") },
//	    func(q, _ any, onInvalidate reactivity.OnInvalidate) {
//	        ctx, cancel := context.WithCancel(context.Background())
//	        onInvalidate(cancel)
//	        go search(ctx, q)
//	    })
//	defer stop()
func Watch[T any](e *Engine, source func() T, cb WatchCallback[T], opts ...WatchOption) StopHandle {
	var cfg watchConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		eff      *Effect
		oldValue T
		cleanup  func()
		queued   bool
	)

	onInvalidate := func(fn func()) {
		cleanup = fn
	}
	invalidate := func() {
		if fn := cleanup; fn != nil {
			cleanup = nil
			fn()
		}
	}
	get := func() T {
		v, _ := eff.Run().(T)
		return v
	}
	job := func() {
		queued = false
		if eff.stopped {
			return
		}
		newValue := get()
		invalidate()
		cb(newValue, oldValue, onInvalidate)
		oldValue = newValue
	}

	name := cfg.name
	if name == "" {
		name = "watch"
	}
	eff = e.EffectValue(
		func() any { return source() },
		Lazy(),
		EffectName(name),
		WithScheduler(func(*Effect) {
			if cfg.flush != FlushPost {
				job()
				return
			}
			if !queued {
				queued = true
				e.QueuePostFlush(job)
			}
		}),
	)

	if cfg.immediate {
		job()
	} else {
		oldValue = get()
	}

	return func() {
		eff.Stop()
		invalidate()
	}
}

// WatchTarget watches every value reachable from a wrapper or ref. The
// callback receives the target itself as both new and old value unless the
// target is a ref, in which case it receives the ref's value.
func WatchTarget(e *Engine, target any, cb WatchCallback[any], opts ...WatchOption) StopHandle {
	var cfg watchConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	source := func() any {
		traverse(target, cfg.depth)
		return target
	}
	if r, ok := target.(AnyRef); ok {
		source = func() any {
			v := r.GetAny()
			traverse(v, cfg.depth)
			return v
		}
	}
	return Watch(e, source, cb, opts...)
}

// traverse reads every key reachable from v so the running effect depends
// on all of them. Each raw target is visited once, which makes cyclic
// graphs safe. A positive depth bounds the number of levels visited.
func traverse(v any, depth int) {
	type item struct {
		value any
		level int
	}
	seen := make(map[uint64]struct{})
	stack := []item{{value: v, level: 1}}

	visit := func(h uint64) bool {
		if _, ok := seen[h]; ok {
			return false
		}
		seen[h] = struct{}{}
		return true
	}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if depth > 0 && it.level > depth {
			continue
		}

		switch x := it.value.(type) {
		case *Proxy:
			if !visit(x.raw.id) {
				continue
			}
			for _, k := range x.Keys() {
				stack = append(stack, item{value: x.Get(k), level: it.level + 1})
			}
		case *ArrayProxy:
			if !visit(x.raw.id) {
				continue
			}
			for _, el := range x.Values() {
				stack = append(stack, item{value: el, level: it.level + 1})
			}
		case AnyRef:
			if t, ok := x.(target); ok && !visit(t.handle()) {
				continue
			}
			stack = append(stack, item{value: x.GetAny(), level: it.level})
		}
	}
}
