package reactivity

import (
	"fmt"
	"sync"
)

// TargetKind classifies what a dependency record belongs to.
type TargetKind uint8

const (
	KindObject TargetKind = iota + 1
	KindArray
	KindComputed
	KindRef
)

// String returns a human-readable name for the kind.
func (k TargetKind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindComputed:
		return "computed"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// target is anything the store can key dependencies on.
type target interface {
	handle() uint64
	targetKind() TargetKind

	// addCleanup arranges for fn(handle) to run once the target has been
	// garbage collected.
	addCleanup(fn func(uint64))
}

type iterateKeyType struct{}
type lengthKeyType struct{}

var (
	// iterateKey represents structural dependence on an object's key set.
	iterateKey any = iterateKeyType{}

	// lengthKey is the length of an array. It doubles as the structural key
	// for array enumeration.
	lengthKey any = lengthKeyType{}
)

// valueKey is the single key of a Ref or Computed.
const valueKey = "value"

// KeyString renders a dependency key for logs and events.
func KeyString(key any) string {
	switch k := key.(type) {
	case iterateKeyType:
		return "<iterate>"
	case lengthKeyType:
		return "length"
	case string:
		return k
	case int:
		return fmt.Sprintf("%d", k)
	default:
		return fmt.Sprintf("%v", k)
	}
}

// dep is the set of effects subscribed to one (target, key) pair.
type dep struct {
	owner *record
	key   any
	subs  map[*Effect]struct{}
}

// remove unsubscribes eff and drops the dep from its record once empty.
func (d *dep) remove(eff *Effect) {
	delete(d.subs, eff)
	if len(d.subs) == 0 && d.owner != nil && d.owner.deps[d.key] == d {
		delete(d.owner.deps, d.key)
	}
}

// record holds every dep of one tracked target.
type record struct {
	kind TargetKind
	deps map[any]*dep
}

// store is the arena of dependency records, addressed by target handle.
// Records hold no reference to their target; when the target is collected
// its handle is queued by a runtime cleanup and the record is released on
// the next store access.
type store struct {
	records map[uint64]*record

	// reclaimed is appended to from runtime cleanup goroutines.
	mu        sync.Mutex
	reclaimed []uint64
	released  uint64
}

func newStore() *store {
	return &store{records: make(map[uint64]*record)}
}

// queueReclaim is the runtime cleanup callback. It may run on any goroutine.
func (s *store) queueReclaim(h uint64) {
	s.mu.Lock()
	s.reclaimed = append(s.reclaimed, h)
	s.mu.Unlock()
}

// sweep releases records whose targets have been collected.
func (s *store) sweep() {
	s.mu.Lock()
	handles := s.reclaimed
	s.reclaimed = nil
	s.mu.Unlock()

	for _, h := range handles {
		rec, ok := s.records[h]
		if !ok {
			continue
		}
		for _, d := range rec.deps {
			d.owner = nil
		}
		delete(s.records, h)
		s.released++
	}
}

// lookup returns the record of a target, or nil if nothing tracked it.
func (s *store) lookup(t target) *record {
	s.sweep()
	return s.records[t.handle()]
}

// dep returns the dep for (t, key), creating the record and dep as needed.
func (s *store) dep(t target, key any) *dep {
	s.sweep()
	h := t.handle()
	rec, ok := s.records[h]
	if !ok {
		rec = &record{kind: t.targetKind(), deps: make(map[any]*dep)}
		s.records[h] = rec
		t.addCleanup(s.queueReclaim)
	}
	d, ok := rec.deps[key]
	if !ok {
		d = &dep{owner: rec, key: key, subs: make(map[*Effect]struct{})}
		rec.deps[key] = d
	}
	return d
}

// Stats is a point-in-time summary of an engine's dependency store.
type Stats struct {
	// Records is the number of targets with a live dependency record.
	Records int

	// Keys is the number of (target, key) pairs with at least one subscriber.
	Keys int

	// Subscriptions is the total number of effect subscriptions.
	Subscriptions int

	// Effects is the number of distinct subscribed effects.
	Effects int

	// PendingJobs is the length of the post-flush queue.
	PendingJobs int

	// Released counts records dropped because their target was collected.
	Released uint64
}

func (s *store) stats() Stats {
	s.sweep()
	st := Stats{Records: len(s.records), Released: s.released}
	effects := make(map[*Effect]struct{})
	for _, rec := range s.records {
		st.Keys += len(rec.deps)
		for _, d := range rec.deps {
			st.Subscriptions += len(d.subs)
			for eff := range d.subs {
				effects[eff] = struct{}{}
			}
		}
	}
	st.Effects = len(effects)
	return st
}
