// Package reactivity provides a fine-grained reactive dependency-tracking
// runtime.
//
// Plain data is held in raw targets (*Object and *Array). Wrapping a target
// with an Engine yields a Proxy or ArrayProxy: every read through the wrapper
// is recorded as a dependency of the effect that is currently running, and
// every write re-runs the effects that depended on the written key.
//
// # Core Types
//
// Reactive wrappers route reads and writes through the engine:
//
//	e := reactivity.New()
//	state := e.Reactive(reactivity.ObjectOf(map[string]any{"count": 1}))
//	e.Effect(func() {
//	    fmt.Println("count is", state.Get("count"))
//	})
//	state.Set("count", 2) // prints "count is 2" before Set returns
//
// Computed is a cached derived value:
//
//	doubled := reactivity.NewComputed(e, func() int {
//	    return state.Get("count").(int) * 2
//	})
//	doubled.Value() // recomputes only after a dependency changed
//
// Watch runs a callback with the new and old value of a getter:
//
//	stop := reactivity.Watch(e, func() any { return state.Get("count") },
//	    func(newValue, oldValue any, onInvalidate reactivity.OnInvalidate) {
//	        fmt.Println(oldValue, "->", newValue)
//	    }, reactivity.WithFlush(reactivity.FlushPost))
//	defer stop()
//
// Ref wraps a single value so it can be tracked:
//
//	name := reactivity.NewRef(e, "ada")
//	name.Set("grace")
//
// # Scheduling
//
// Triggered effects run synchronously, in creation order, before the writing
// call returns, unless they carry a scheduler. Post-flush jobs (watchers with
// FlushPost) are queued on the engine and run by Engine.Flush, which a Loop
// calls after every task it executes.
//
// # Thread Safety
//
// An Engine is single-threaded. Drive it from one goroutine, typically the
// one running Loop.Run, and hand work to it from other goroutines with
// Loop.Post. Raw targets must not be shared between engines that run on
// different goroutines.
//
// # Limitations
//
// An effect never re-triggers itself, but a cycle spanning two or more
// effects (A writes what B reads, B writes what A reads) is not detected and
// recurses until the stack overflows.
package reactivity
