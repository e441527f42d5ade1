package persist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vango-dev/reactivity/pkg/reactivity"
)

// BindOption configures a Binding.
type BindOption func(*bindConfig)

type bindConfig struct {
	ctx         context.Context
	timeout     time.Duration
	logger      *slog.Logger
	initialSave bool
	flush       reactivity.FlushMode
}

// WithContext sets the parent context of every save.
func WithContext(ctx context.Context) BindOption {
	return func(c *bindConfig) {
		c.ctx = ctx
	}
}

// WithSaveTimeout bounds each save. Zero means no timeout.
func WithSaveTimeout(d time.Duration) BindOption {
	return func(c *bindConfig) {
		c.timeout = d
	}
}

// WithLogger sets the logger for failed saves. Default: the engine logger.
func WithLogger(l *slog.Logger) BindOption {
	return func(c *bindConfig) {
		c.logger = l
	}
}

// WithInitialSave saves the current state when the binding is created.
func WithInitialSave() BindOption {
	return func(c *bindConfig) {
		c.initialSave = true
	}
}

// WithSyncSaves saves inside every write instead of once per flush.
func WithSyncSaves() BindOption {
	return func(c *bindConfig) {
		c.flush = reactivity.FlushSync
	}
}

// Binding keeps a store in sync with a reactive target.
type Binding struct {
	engine *reactivity.Engine
	target any
	store  Store
	name   string
	config bindConfig

	stop  reactivity.StopHandle
	saves int
	last  string
	err   error
}

// Bind watches target deeply and saves a snapshot under name after every
// flush in which it changed. Saves run on the engine goroutine. Failures are
// logged and kept in Err; they do not stop the binding.
func Bind(e *reactivity.Engine, target any, store Store, name string, opts ...BindOption) (*Binding, error) {
	if !reactivity.IsReactive(target) && !reactivity.IsReadonly(target) && !reactivity.IsRef(target) {
		return nil, fmt.Errorf("persist: bind %q: %w", name, reactivity.ErrNotReactive)
	}
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	config := bindConfig{
		ctx:    context.Background(),
		logger: e.Logger(),
		flush:  reactivity.FlushPost,
	}
	for _, opt := range opts {
		opt(&config)
	}

	b := &Binding{engine: e, target: target, store: store, name: name, config: config}
	watchOpts := []reactivity.WatchOption{
		reactivity.WithFlush(config.flush),
		reactivity.WatchName("persist:" + name),
	}
	if config.initialSave {
		watchOpts = append(watchOpts, reactivity.Immediate())
	}
	b.stop = reactivity.WatchTarget(e, target, func(any, any, reactivity.OnInvalidate) {
		b.save()
	}, watchOpts...)
	return b, nil
}

func (b *Binding) save() {
	ctx := b.config.ctx
	if b.config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.timeout)
		defer cancel()
	}

	snap := NewSnapshot(b.target)
	data, err := EncodeSnapshot(snap)
	if err == nil {
		err = b.store.Save(ctx, b.name, data)
	}
	if err != nil {
		b.err = err
		b.config.logger.Error("persist: save failed", "name", b.name, "error", err)
		return
	}
	b.err = nil
	b.saves++
	b.last = snap.ID
	b.config.logger.Debug("persist: snapshot saved", "name", b.name, "id", snap.ID, "bytes", len(data))
}

// Err returns the error of the most recent save, or nil if it succeeded.
func (b *Binding) Err() error {
	return b.err
}

// Saves returns the number of successful saves.
func (b *Binding) Saves() int {
	return b.saves
}

// LastSnapshot returns the id of the most recent successful save.
func (b *Binding) LastSnapshot() string {
	return b.last
}

// Stop ends the binding. Pending saves are dropped.
func (b *Binding) Stop() {
	b.stop()
}

// Restore loads the snapshot saved under name and returns its state as raw
// targets, ready to be wrapped.
func Restore(ctx context.Context, store Store, name string) (Snapshot, error) {
	data, err := store.Load(ctx, name)
	if err != nil {
		return Snapshot{}, err
	}
	return DecodeSnapshot(data)
}
