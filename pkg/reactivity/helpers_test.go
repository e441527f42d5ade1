package reactivity

import (
	"bytes"
	"log/slog"
	"testing"
	"time"
)

// recorder collects observer events for assertions.
type recorder struct {
	NopObserver
	tracks      []TrackEvent
	triggers    []TriggerEvent
	started     []EffectEvent
	panics      int
	diagnostics []Diagnostic
}

func (r *recorder) Tracked(ev TrackEvent)        { r.tracks = append(r.tracks, ev) }
func (r *recorder) Triggered(ev TriggerEvent)    { r.triggers = append(r.triggers, ev) }
func (r *recorder) EffectStarted(ev EffectEvent) { r.started = append(r.started, ev) }
func (r *recorder) Diagnosed(d Diagnostic)       { r.diagnostics = append(r.diagnostics, d) }

func (r *recorder) EffectFinished(_ EffectEvent, _ time.Duration, panicked bool) {
	if panicked {
		r.panics++
	}
}

// newTestEngine returns an engine that logs into a buffer and records events.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *recorder, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	base := []Option{WithLogger(logger), WithObserver(rec)}
	return New(append(base, opts...)...), rec, &buf
}

func obj(kv ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i].(string), FromValue(kv[i+1]))
	}
	return o
}
