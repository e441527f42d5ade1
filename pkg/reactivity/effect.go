package reactivity

import "time"

// Effect is a re-runnable computation. Every run first drops the
// subscriptions of the previous run, so an effect only depends on what its
// latest run actually read.
type Effect struct {
	id     uint64
	name   string
	engine *Engine

	// fn is the thunk; its result is returned by Run.
	fn func() any

	// deps are the dep sets this effect is subscribed to.
	deps []*dep

	// scheduler, when set, receives the effect instead of an inline re-run.
	scheduler func(*Effect)

	stopped bool
}

// EffectOption configures an Effect.
type EffectOption func(*effectConfig)

type effectConfig struct {
	lazy      bool
	scheduler func(*Effect)
	name      string
}

// Lazy creates the effect without running it. The caller decides when the
// first Run happens.
func Lazy() EffectOption {
	return func(c *effectConfig) {
		c.lazy = true
	}
}

// WithScheduler hands triggered re-runs to fn instead of running the effect
// inline. fn owns when (and whether) Run is called.
func WithScheduler(fn func(*Effect)) EffectOption {
	return func(c *effectConfig) {
		c.scheduler = fn
	}
}

// EffectName labels the effect in observer events.
func EffectName(name string) EffectOption {
	return func(c *effectConfig) {
		c.name = name
	}
}

// Effect creates an effect from fn and, unless Lazy is given, runs it once.
//
// Example:
//
//	e.Effect(func() {
//	    fmt.Println("count is", state.Get("count"))
//	})
func (e *Engine) Effect(fn func(), opts ...EffectOption) *Effect {
	return e.EffectValue(func() any {
		fn()
		return nil
	}, opts...)
}

// EffectValue is Effect for thunks that produce a value, which Run returns.
// It is the building block of lazy computations:
//
//	eff := e.EffectValue(func() any { return state.Get("a") }, reactivity.Lazy())
//	v := eff.Run()
func (e *Engine) EffectValue(fn func() any, opts ...EffectOption) *Effect {
	var cfg effectConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	eff := &Effect{
		id:        nextID(),
		name:      cfg.name,
		engine:    e,
		fn:        fn,
		scheduler: cfg.scheduler,
	}
	if !cfg.lazy {
		eff.Run()
	}
	return eff
}

// ID returns the unique identifier of the effect.
func (eff *Effect) ID() uint64 {
	return eff.id
}

// Name returns the name given with EffectName.
func (eff *Effect) Name() string {
	return eff.name
}

// Active reports whether the effect has not been stopped.
func (eff *Effect) Active() bool {
	return !eff.stopped
}

// Deps returns the number of dep sets the effect is subscribed to.
func (eff *Effect) Deps() int {
	return len(eff.deps)
}

// Run executes the thunk with the effect as the active effect and returns
// its result. The tracking stack is restored on every exit path; a panic in
// the thunk propagates to the caller unchanged.
//
// A stopped effect runs its thunk without becoming active, so its reads are
// attributed to whichever effect is running around it.
func (eff *Effect) Run() any {
	if eff.stopped {
		return eff.fn()
	}
	e := eff.engine

	eff.cleanup()
	e.pushEffect(eff)
	defer e.popEffect()

	ev := EffectEvent{ID: eff.id, Name: eff.name, Depth: len(e.stack)}
	start := time.Now()
	e.observer.EffectStarted(ev)
	panicked := true
	defer func() {
		e.observer.EffectFinished(ev, time.Since(start), panicked)
	}()

	v := eff.fn()
	panicked = false
	return v
}

// Stop unsubscribes the effect from everything it depends on. A stopped
// effect is never triggered again.
func (eff *Effect) Stop() {
	if eff.stopped {
		return
	}
	eff.cleanup()
	eff.stopped = true
}

// cleanup removes the effect from every dep set it belongs to.
func (eff *Effect) cleanup() {
	for i, d := range eff.deps {
		d.remove(eff)
		eff.deps[i] = nil
	}
	eff.deps = eff.deps[:0]
}
