package reactivity

// Proxy is the tracked view of an *Object. Obtain one with Engine.Reactive,
// Engine.ShallowReactive, Engine.Readonly or Engine.ShallowReadonly; the
// engine hands out a single Proxy per object and mode.
//
// Reads through a non-readonly Proxy subscribe the active effect, writes
// trigger the effects subscribed to the written key. Readonly proxies refuse
// every write and report a Diagnostic instead.
type Proxy struct {
	engine *Engine
	raw    *Object
	mode   Mode
}

// Raw returns the wrapped object.
func (p *Proxy) Raw() *Object {
	return p.raw
}

// Engine returns the engine the proxy belongs to.
func (p *Proxy) Engine() *Engine {
	return p.engine
}

// Mode returns the wrapping mode.
func (p *Proxy) Mode() Mode {
	return p.mode
}

// IsReadonly reports whether writes through p are refused.
func (p *Proxy) IsReadonly() bool {
	return p.mode.Readonly()
}

// IsShallow reports whether nested objects are returned raw.
func (p *Proxy) IsShallow() bool {
	return p.mode.Shallow()
}

// Get returns the value of key. Inherited keys are looked up on the
// prototype chain; when the prototype is itself a Proxy the read is tracked
// there too. Nested objects and arrays come back wrapped unless p is shallow.
func (p *Proxy) Get(key string) any {
	v, _ := p.lookup(key)
	return v
}

// Lookup is Get that also reports whether key was found.
func (p *Proxy) Lookup(key string) (any, bool) {
	return p.lookup(key)
}

func (p *Proxy) lookup(key string) (any, bool) {
	if !p.mode.Readonly() {
		p.engine.track(p.raw, key)
	}
	v, ok := p.raw.Get(key)
	if !ok || p.mode.Shallow() {
		return v, ok
	}
	return p.engine.wrapNested(v, p.mode&ModeReadonly), true
}

// Set writes key. A key the object does not own is an addition and always
// triggers; an existing key triggers only when the value changed.
// Wrapper values are stored as their raw target.
func (p *Proxy) Set(key string, value any) {
	p.set(key, value, p)
}

// set writes key on behalf of receiver. Writes to a key the target does not
// own are delegated up a Proxy prototype chain, but the value always lands
// on the receiver and only the receiver's target is triggered.
func (p *Proxy) set(key string, value any, receiver *Proxy) bool {
	if p.mode.Readonly() {
		p.engine.refuse(OpSet, p.raw, key)
		return false
	}
	value = ToRaw(value)

	old, had := p.raw.fields[key]
	if parent, ok := p.raw.proto.(*Proxy); ok && !had {
		if !parent.set(key, value, receiver) {
			return false
		}
	} else {
		receiver.raw.Set(key, value)
	}

	if receiver.raw != p.raw {
		return true
	}
	switch {
	case !had:
		p.engine.trigger(p.raw, key, ChangeAdd, value)
	case !SameValue(old, value):
		p.engine.trigger(p.raw, key, ChangeSet, value)
	}
	return true
}

// Has reports whether key is present on the object or its prototype chain.
func (p *Proxy) Has(key string) bool {
	p.engine.track(p.raw, key)
	return p.raw.protoHas(key)
}

// Keys returns the own keys in insertion order. The active effect is
// subscribed to the key set, so it re-runs when keys are added or deleted
// but not when existing values change.
func (p *Proxy) Keys() []string {
	p.engine.track(p.raw, iterateKey)
	return p.raw.Keys()
}

// Len returns the number of own keys, tracked like Keys.
func (p *Proxy) Len() int {
	p.engine.track(p.raw, iterateKey)
	return p.raw.Len()
}

// Delete removes an own key and reports whether it was removed. Deleting a
// key that is absent or only inherited does not trigger. On a readonly proxy
// nothing is removed but Delete still reports success, like Set, so callers
// are not derailed by a refused mutation.
func (p *Proxy) Delete(key string) bool {
	if p.mode.Readonly() {
		p.engine.refuse(OpDelete, p.raw, key)
		return true
	}
	if !p.raw.Delete(key) {
		return false
	}
	p.engine.trigger(p.raw, key, ChangeDelete, nil)
	return true
}

func (p *Proxy) protoGet(key string) (any, bool) {
	return p.lookup(key)
}

func (p *Proxy) protoHas(key string) bool {
	return p.Has(key)
}
