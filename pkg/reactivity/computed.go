package reactivity

import "runtime"

// Computed is a lazily evaluated, cached derived value. The getter runs on
// the first Value call and again only after one of its dependencies changed.
//
// Effects that read Value depend on the computed itself, not on the getter's
// dependencies: a write to a dependency marks the computed dirty and
// triggers its readers, which recompute it on their next read.
type Computed[T any] struct {
	id     uint64
	engine *Engine
	effect *Effect
	value  T
	dirty  bool
}

// NewComputed creates a computed value over getter. It does not call getter.
//
// Example:
//
//	total := reactivity.NewComputed(e, func() int {
//	    return state.Get("a").(int) + state.Get("b").(int)
//	})
//	fmt.Println(total.Value())
func NewComputed[T any](e *Engine, getter func() T) *Computed[T] {
	c := &Computed[T]{id: nextID(), engine: e, dirty: true}
	c.effect = e.EffectValue(
		func() any { return getter() },
		Lazy(),
		EffectName("computed"),
		WithScheduler(func(*Effect) {
			if c.dirty {
				return
			}
			c.dirty = true
			e.trigger(c, valueKey, ChangeSet, nil)
		}),
	)
	return c
}

func (c *Computed[T]) handle() uint64         { return c.id }
func (c *Computed[T]) targetKind() TargetKind { return KindComputed }

func (c *Computed[T]) addCleanup(fn func(uint64)) {
	runtime.AddCleanup(c, fn, c.id)
}

// Value returns the cached value, recomputing it first if a dependency
// changed since the last read. The active effect is subscribed to c.
// If the getter panics the computed stays dirty.
func (c *Computed[T]) Value() T {
	if c.dirty {
		v, _ := c.effect.Run().(T)
		c.value = v
		c.dirty = false
	}
	c.engine.track(c, valueKey)
	return c.value
}

// Dirty reports whether the next Value call will run the getter.
func (c *Computed[T]) Dirty() bool {
	return c.dirty
}

// Stop detaches the computed from its dependencies. Value keeps returning
// the last computed result.
func (c *Computed[T]) Stop() {
	c.effect.Stop()
}

// GetAny implements AnyRef.
func (c *Computed[T]) GetAny() any {
	return c.Value()
}

// SetAny implements AnyRef. Computed values are readonly.
func (c *Computed[T]) SetAny(any) error {
	return ErrReadonly
}

func (c *Computed[T]) isRef() {}
