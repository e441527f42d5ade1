// Package inspect exposes recent engine activity over HTTP.
//
// A Recorder is attached to an engine as its Observer and keeps a ring
// buffer of events; NewHandler serves that buffer as JSON, streams new
// events over a websocket, and optionally serves Prometheus metrics.
package inspect

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

// Event types.
const (
	EventTrack       = "track"
	EventTrigger     = "trigger"
	EventEffectStart = "effect_start"
	EventEffectEnd   = "effect_end"
	EventDiagnostic  = "diagnostic"
)

// Event is one recorded engine event.
type Event struct {
	Seq  uint64    `json:"seq"`
	Time time.Time `json:"time"`
	Type string    `json:"type"`

	Target  uint64 `json:"target,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Key     string `json:"key,omitempty"`
	Change  string `json:"change,omitempty"`
	Effects int    `json:"effects,omitempty"`

	Effect   uint64 `json:"effect,omitempty"`
	Name     string `json:"name,omitempty"`
	Depth    int    `json:"depth,omitempty"`
	Micros   int64  `json:"durationUs,omitempty"`
	Panicked bool   `json:"panicked,omitempty"`

	Code string `json:"code,omitempty"`
	Op   string `json:"op,omitempty"`
}

// DefaultBufferSize is the ring buffer size used when NewRecorder gets a
// non-positive size.
const DefaultBufferSize = 1024

// Recorder is a reactivity.Observer that keeps the most recent events and
// fans them out to subscribers. Unlike the engine it observes, a Recorder is
// safe for concurrent use: the engine goroutine writes while HTTP handlers
// read.
type Recorder struct {
	mu      sync.Mutex
	buf     []Event
	start   int
	count   int
	seq     uint64
	dropped uint64
	subs    map[string]chan Event

	now func() time.Time
}

// NewRecorder creates a recorder keeping the last size events.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Recorder{
		buf:  make([]Event, size),
		subs: make(map[string]chan Event),
		now:  time.Now,
	}
}

func (r *Recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	ev.Seq = r.seq
	ev.Time = r.now()

	idx := (r.start + r.count) % len(r.buf)
	r.buf[idx] = ev
	if r.count < len(r.buf) {
		r.count++
	} else {
		r.start = (r.start + 1) % len(r.buf)
	}

	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
			r.dropped++
		}
	}
}

// Events returns up to limit of the most recent events, oldest first.
// A non-positive limit returns everything buffered.
func (r *Recorder) Events(limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, n)
	first := r.start + r.count - n
	for i := range out {
		out[i] = r.buf[(first+i)%len(r.buf)]
	}
	return out
}

// Total returns the number of events recorded since creation.
func (r *Recorder) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Dropped returns how many events could not be delivered to a subscriber
// because its channel was full.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Subscribe registers a subscriber receiving every new event. The returned
// cancel function unregisters it and closes the channel.
func (r *Recorder) Subscribe(buffer int) (id string, events <-chan Event, cancel func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	id = uuid.NewString()

	r.mu.Lock()
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}
	return id, ch, cancel
}

// Subscribers returns the number of active subscribers.
func (r *Recorder) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Tracked implements reactivity.Observer.
func (r *Recorder) Tracked(ev reactivity.TrackEvent) {
	r.record(Event{
		Type:   EventTrack,
		Target: ev.Target,
		Kind:   ev.Kind.String(),
		Key:    ev.Key,
		Effect: ev.Effect,
	})
}

// Triggered implements reactivity.Observer.
func (r *Recorder) Triggered(ev reactivity.TriggerEvent) {
	r.record(Event{
		Type:    EventTrigger,
		Target:  ev.Target,
		Kind:    ev.Kind.String(),
		Key:     ev.Key,
		Change:  ev.Change.String(),
		Effects: ev.Effects,
		Effect:  ev.Source,
	})
}

// EffectStarted implements reactivity.Observer.
func (r *Recorder) EffectStarted(ev reactivity.EffectEvent) {
	r.record(Event{
		Type:   EventEffectStart,
		Effect: ev.ID,
		Name:   ev.Name,
		Depth:  ev.Depth,
	})
}

// EffectFinished implements reactivity.Observer.
func (r *Recorder) EffectFinished(ev reactivity.EffectEvent, elapsed time.Duration, panicked bool) {
	r.record(Event{
		Type:     EventEffectEnd,
		Effect:   ev.ID,
		Name:     ev.Name,
		Depth:    ev.Depth,
		Micros:   elapsed.Microseconds(),
		Panicked: panicked,
	})
}

// Diagnosed implements reactivity.Observer.
func (r *Recorder) Diagnosed(d reactivity.Diagnostic) {
	r.record(Event{
		Type:   EventDiagnostic,
		Target: d.Target,
		Key:    d.Key,
		Code:   d.Code,
		Op:     string(d.Op),
	})
}
