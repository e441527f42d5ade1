package reactivity

import "log/slog"

// Engine owns all reactive state: the dependency store, the tracking stack
// and the post-flush queue. Engines are independent of each other; wrapping
// the same raw target in two engines yields two unrelated wrappers.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	logger   *slog.Logger
	observer Observer
	policy   ReadonlyPolicy

	store *store

	// stack is the tracking context; the last element is the active effect.
	stack []*Effect

	// shouldTrack is false inside paused sections such as array mutators.
	shouldTrack bool
	trackStack  []bool

	postQueue []func()
	flushing  bool
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	return &Engine{
		logger:      cfg.Logger,
		observer:    cfg.Observer,
		policy:      cfg.ReadonlyPolicy,
		store:       newStore(),
		shouldTrack: true,
	}
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Untracked runs fn without recording any dependency for the active effect.
//
// Example:
//
//	e.Effect(func() {
//	    _ = state.Get("a") // tracked
//	    e.Untracked(func() {
//	        _ = state.Get("b") // not tracked
//	    })
//	})
func (e *Engine) Untracked(fn func()) {
	e.pauseTracking()
	defer e.resetTracking()
	fn()
}

// Tracking reports whether a read right now would be recorded.
func (e *Engine) Tracking() bool {
	return e.shouldTrack && e.activeEffect() != nil
}

// QueuePostFlush appends job to the post-flush queue. Jobs run, in order, the
// next time Flush is called.
func (e *Engine) QueuePostFlush(job func()) {
	e.postQueue = append(e.postQueue, job)
}

// PendingJobs returns the number of queued post-flush jobs.
func (e *Engine) PendingJobs() int {
	return len(e.postQueue)
}

// Flush runs queued post-flush jobs until the queue is empty, including jobs
// queued by the jobs themselves, and returns how many ran. A nested call made
// from inside a job returns 0 immediately. If a job panics the remaining
// jobs stay queued.
func (e *Engine) Flush() int {
	if e.flushing {
		return 0
	}
	e.flushing = true
	defer func() { e.flushing = false }()

	n := 0
	for len(e.postQueue) > 0 {
		job := e.postQueue[0]
		e.postQueue[0] = nil
		e.postQueue = e.postQueue[1:]
		n++
		job()
	}
	return n
}

// Stats summarizes the dependency store.
func (e *Engine) Stats() Stats {
	st := e.store.stats()
	st.PendingJobs = len(e.postQueue)
	return st
}

// refuse reports a mutation attempted through a readonly wrapper.
func (e *Engine) refuse(op Op, t target, key any) {
	d := &Diagnostic{
		Code:   CodeReadonlyMutation,
		Op:     op,
		Target: t.handle(),
		Key:    KeyString(key),
		Err:    ErrReadonly,
	}
	e.observer.Diagnosed(*d)

	switch e.policy {
	case ReadonlyPanic:
		panic(d)
	case ReadonlySilent:
	default:
		e.logger.Warn("reactivity: mutation refused on readonly target",
			"code", d.Code,
			"op", string(op),
			"target", d.Target,
			"key", d.Key)
	}
}
