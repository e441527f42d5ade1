package reactivity

import (
	"runtime"
	"sort"
)

// Object is a raw, untracked record with ordered string keys. Wrap it with
// Engine.Reactive (or one of its siblings) to make access through the wrapper
// tracked. Methods on Object itself never track or trigger.
type Object struct {
	id     uint64
	keys   []string
	fields map[string]any
	proto  Prototype

	// views caches one wrapper per engine and Mode.
	views map[*Engine]*[modeCount]*Proxy
}

// Prototype is the fallback consulted for keys an Object does not own.
// It is implemented by *Object and *Proxy; a *Proxy prototype makes reads
// of inherited keys tracked on the prototype's target as well.
type Prototype interface {
	protoGet(key string) (any, bool)
	protoHas(key string) bool
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{id: nextID(), fields: make(map[string]any)}
}

// ObjectOf builds an Object from a map. Keys are inserted in sorted order.
// Nested map[string]any and []any values are converted with FromValue.
func ObjectOf(fields map[string]any) *Object {
	o := NewObject()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.Set(k, FromValue(fields[k]))
	}
	return o
}

// FromValue converts native maps and slices into raw targets, recursively.
// Other values are returned unchanged.
func FromValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return ObjectOf(x)
	case []any:
		return NewArray(x...)
	default:
		return v
	}
}

func (o *Object) handle() uint64         { return o.id }
func (o *Object) targetKind() TargetKind { return KindObject }

func (o *Object) addCleanup(fn func(uint64)) {
	runtime.AddCleanup(o, fn, o.id)
}

// ID returns the handle of the object.
func (o *Object) ID() uint64 {
	return o.id
}

// With sets key and returns o, for building literals.
func (o *Object) With(key string, value any) *Object {
	o.Set(key, value)
	return o
}

// Set sets an own key. A new key is appended to the key order.
func (o *Object) Set(key string, value any) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = value
}

// Get returns the value of key, consulting the prototype chain for keys the
// object does not own.
func (o *Object) Get(key string) (any, bool) {
	if v, ok := o.fields[key]; ok {
		return v, true
	}
	if o.proto != nil {
		return o.proto.protoGet(key)
	}
	return nil, false
}

// HasOwn reports whether key is an own key.
func (o *Object) HasOwn(key string) bool {
	_, ok := o.fields[key]
	return ok
}

// Delete removes an own key and reports whether it existed.
func (o *Object) Delete(key string) bool {
	if _, ok := o.fields[key]; !ok {
		return false
	}
	delete(o.fields, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the own keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of own keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// SetPrototype sets the fallback for keys the object does not own.
// Pass nil to clear it.
func (o *Object) SetPrototype(p Prototype) {
	o.proto = p
}

// Prototype returns the prototype, or nil.
func (o *Object) Prototype() Prototype {
	return o.proto
}

func (o *Object) protoGet(key string) (any, bool) {
	return o.Get(key)
}

func (o *Object) protoHas(key string) bool {
	if o.HasOwn(key) {
		return true
	}
	return o.proto != nil && o.proto.protoHas(key)
}
