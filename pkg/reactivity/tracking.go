package reactivity

import "sort"

// ChangeKind classifies a write for trigger.
type ChangeKind uint8

const (
	// ChangeSet overwrites an existing key.
	ChangeSet ChangeKind = iota + 1

	// ChangeAdd introduces a key (or an array index at or past the length).
	ChangeAdd

	// ChangeDelete removes an own key.
	ChangeDelete
)

// String returns the change name.
func (c ChangeKind) String() string {
	switch c {
	case ChangeSet:
		return "SET"
	case ChangeAdd:
		return "ADD"
	case ChangeDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// activeEffect returns the effect on top of the tracking stack, or nil.
func (e *Engine) activeEffect() *Effect {
	if len(e.stack) == 0 {
		return nil
	}
	return e.stack[len(e.stack)-1]
}

// pushEffect makes eff the active effect. Tracking is always enabled for the
// duration of an effect run, even when the run was triggered from a section
// that paused tracking.
func (e *Engine) pushEffect(eff *Effect) {
	e.stack = append(e.stack, eff)
	e.trackStack = append(e.trackStack, e.shouldTrack)
	e.shouldTrack = true
}

// popEffect restores the state saved by pushEffect.
func (e *Engine) popEffect() {
	e.stack[len(e.stack)-1] = nil
	e.stack = e.stack[:len(e.stack)-1]
	e.resetTracking()
}

// pauseTracking disables track until the matching resetTracking.
func (e *Engine) pauseTracking() {
	e.trackStack = append(e.trackStack, e.shouldTrack)
	e.shouldTrack = false
}

// resetTracking restores the tracking flag saved by the last pause or push.
func (e *Engine) resetTracking() {
	n := len(e.trackStack)
	if n == 0 {
		e.shouldTrack = true
		return
	}
	e.shouldTrack = e.trackStack[n-1]
	e.trackStack = e.trackStack[:n-1]
}

// track records that the active effect depends on (t, key).
// It is a no-op unless a live effect is running with tracking enabled.
func (e *Engine) track(t target, key any) {
	eff := e.activeEffect()
	if eff == nil || !e.shouldTrack || eff.stopped {
		return
	}
	d := e.store.dep(t, key)
	if _, ok := d.subs[eff]; ok {
		return
	}
	d.subs[eff] = struct{}{}
	eff.deps = append(eff.deps, d)

	e.observer.Tracked(TrackEvent{
		Target: t.handle(),
		Kind:   t.targetKind(),
		Key:    KeyString(key),
		Effect: eff.id,
	})
}

// trigger runs or schedules every effect invalidated by a write to (t, key).
// For array length writes newValue must be the new length.
func (e *Engine) trigger(t target, key any, kind ChangeKind, newValue any) {
	rec := e.store.lookup(t)
	if rec == nil {
		return
	}

	active := e.activeEffect()
	run := make(map[*Effect]struct{})
	collect := func(d *dep) {
		if d == nil {
			return
		}
		for eff := range d.subs {
			// An effect never re-triggers itself; this is what stops
			// "x = x + 1" inside an effect from recursing forever.
			if eff != active {
				run[eff] = struct{}{}
			}
		}
	}

	collect(rec.deps[key])
	if kind == ChangeAdd || kind == ChangeDelete {
		collect(rec.deps[iterateKey])
	}
	if rec.kind == KindArray {
		if kind == ChangeAdd {
			collect(rec.deps[lengthKey])
		}
		if key == lengthKey {
			if n, ok := newValue.(int); ok {
				for k, d := range rec.deps {
					if i, isIndex := k.(int); isIndex && i >= n {
						collect(d)
					}
				}
			}
		}
	}

	if len(run) == 0 {
		return
	}

	effects := make([]*Effect, 0, len(run))
	for eff := range run {
		effects = append(effects, eff)
	}
	sort.Slice(effects, func(i, j int) bool { return effects[i].id < effects[j].id })

	var source uint64
	if active != nil {
		source = active.id
	}
	e.observer.Triggered(TriggerEvent{
		Target:  t.handle(),
		Kind:    t.targetKind(),
		Key:     KeyString(key),
		Change:  kind,
		Effects: len(effects),
		Source:  source,
	})

	for _, eff := range effects {
		// An earlier effect in this round may have stopped a later one.
		if eff.stopped {
			continue
		}
		if eff.scheduler != nil {
			eff.scheduler(eff)
		} else {
			eff.Run()
		}
	}
}
