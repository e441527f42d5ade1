package reactivity

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the default capacity of the Loop task queue.
const DefaultQueueSize = 256

// Loop owns an Engine and serializes access to it. Tasks posted from any
// goroutine run one at a time on the goroutine calling Run (or Drain), and
// the engine's post-flush queue is drained after every task, so FlushPost
// watchers observe the state left by a whole task rather than by a single
// write.
type Loop struct {
	engine *Engine
	logger *slog.Logger

	tasks     chan func()
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// LoopOption configures a Loop.
type LoopOption func(*loopConfig)

type loopConfig struct {
	queueSize int
	logger    *slog.Logger
}

// WithQueueSize sets the task queue capacity. Post fails with ErrQueueFull
// once that many tasks are waiting.
func WithQueueSize(n int) LoopOption {
	return func(c *loopConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithLoopLogger sets the logger used for recovered panics. It defaults to
// the engine logger.
func WithLoopLogger(l *slog.Logger) LoopOption {
	return func(c *loopConfig) {
		c.logger = l
	}
}

// NewLoop creates a loop for e. The loop does nothing until Run or Drain is
// called.
func NewLoop(e *Engine, opts ...LoopOption) *Loop {
	cfg := loopConfig{queueSize: DefaultQueueSize, logger: e.Logger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loop{
		engine: e,
		logger: cfg.logger,
		tasks:  make(chan func(), cfg.queueSize),
		done:   make(chan struct{}),
	}
}

// Engine returns the engine driven by the loop. It must only be used from
// inside tasks.
func (l *Loop) Engine() *Engine {
	return l.engine
}

// Post queues task. It never blocks.
func (l *Loop) Post(task func()) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	select {
	case l.tasks <- task:
		return nil
	case <-l.done:
		return ErrLoopClosed
	default:
		l.logger.Warn("reactivity: loop queue full, task discarded")
		return ErrQueueFull
	}
}

// Do posts fn and waits until it has run, including the flush that follows
// it. It returns early with the context error if ctx is done first.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Run processes tasks until ctx is done or the loop is closed. It returns
// the context error, or nil after Close.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case task := <-l.tasks:
			l.execute(task)
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		}
	}
}

// Drain runs every queued task on the calling goroutine and returns how many
// ran. It is meant for tests and one-shot tools that do not call Run.
func (l *Loop) Drain() int {
	n := 0
	for {
		select {
		case task := <-l.tasks:
			l.execute(task)
			n++
		default:
			l.flush()
			return n
		}
	}
}

// Close stops the loop. Queued tasks that have not started are discarded.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}

// execute runs one task followed by the post-flush queue.
func (l *Loop) execute(task func()) {
	l.guard("task", task)
	l.flush()
}

// flush drains the post-flush queue. A panicking job is logged and the
// remaining jobs still run.
func (l *Loop) flush() {
	for l.engine.PendingJobs() > 0 {
		l.guard("post-flush job", func() { l.engine.Flush() })
	}
}

func (l *Loop) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("reactivity: "+what+" panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
