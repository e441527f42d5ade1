package reactivity

import "time"

// TrackEvent is reported when an effect subscribes to a key for the first
// time during a run.
type TrackEvent struct {
	Target uint64
	Kind   TargetKind
	Key    string
	Effect uint64
}

// TriggerEvent is reported when a write invalidates at least one effect.
type TriggerEvent struct {
	Target uint64
	Kind   TargetKind
	Key    string
	Change ChangeKind

	// Effects is the number of effects scheduled or run by this trigger.
	Effects int

	// Source is the id of the effect that performed the write, or 0.
	Source uint64
}

// EffectEvent identifies one effect run.
type EffectEvent struct {
	ID   uint64
	Name string

	// Depth is the size of the tracking stack including this run.
	Depth int
}

// Observer receives engine events. Implementations are called synchronously
// on the engine goroutine and must not call back into the engine.
type Observer interface {
	Tracked(TrackEvent)
	Triggered(TriggerEvent)
	EffectStarted(EffectEvent)
	EffectFinished(ev EffectEvent, elapsed time.Duration, panicked bool)
	Diagnosed(Diagnostic)
}

// NopObserver discards every event. Embed it to implement only part of
// the Observer interface.
type NopObserver struct{}

func (NopObserver) Tracked(TrackEvent)                              {}
func (NopObserver) Triggered(TriggerEvent)                          {}
func (NopObserver) EffectStarted(EffectEvent)                       {}
func (NopObserver) EffectFinished(EffectEvent, time.Duration, bool) {}
func (NopObserver) Diagnosed(Diagnostic)                            {}

type multiObserver []Observer

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multiObserver) Tracked(ev TrackEvent) {
	for _, o := range m {
		o.Tracked(ev)
	}
}

func (m multiObserver) Triggered(ev TriggerEvent) {
	for _, o := range m {
		o.Triggered(ev)
	}
}

func (m multiObserver) EffectStarted(ev EffectEvent) {
	for _, o := range m {
		o.EffectStarted(ev)
	}
}

func (m multiObserver) EffectFinished(ev EffectEvent, elapsed time.Duration, panicked bool) {
	for _, o := range m {
		o.EffectFinished(ev, elapsed, panicked)
	}
}

func (m multiObserver) Diagnosed(d Diagnostic) {
	for _, o := range m {
		o.Diagnosed(d)
	}
}
