package reactivity

import (
	"fmt"
	"runtime"
	"sort"
)

// AnyRef is implemented by every value holder the engine unwraps: *Ref[T],
// *Computed[T] and *PropertyRef. The interface is sealed.
type AnyRef interface {
	GetAny() any
	SetAny(v any) error
	isRef()
}

// Ref is a tracked container for a single value of any type.
type Ref[T any] struct {
	id     uint64
	engine *Engine
	value  T
}

// NewRef returns a ref holding v.
func NewRef[T any](e *Engine, v T) *Ref[T] {
	return &Ref[T]{id: nextID(), engine: e, value: v}
}

func (r *Ref[T]) handle() uint64         { return r.id }
func (r *Ref[T]) targetKind() TargetKind { return KindRef }

func (r *Ref[T]) addCleanup(fn func(uint64)) {
	runtime.AddCleanup(r, fn, r.id)
}

// Get returns the value and subscribes the active effect.
func (r *Ref[T]) Get() T {
	r.engine.track(r, valueKey)
	return r.value
}

// Peek returns the value without tracking.
func (r *Ref[T]) Peek() T {
	return r.value
}

// Set replaces the value. Subscribers re-run only when the value changed.
func (r *Ref[T]) Set(v T) {
	if SameValue(any(r.value), any(v)) {
		return
	}
	r.value = v
	r.engine.trigger(r, valueKey, ChangeSet, v)
}

// Update sets the value to fn applied to the current one, without tracking
// the read.
func (r *Ref[T]) Update(fn func(T) T) {
	r.Set(fn(r.value))
}

// GetAny implements AnyRef.
func (r *Ref[T]) GetAny() any {
	return r.Get()
}

// SetAny implements AnyRef. A nil v stores the zero value.
func (r *Ref[T]) SetAny(v any) error {
	if v == nil {
		var zero T
		r.Set(zero)
		return nil
	}
	t, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: cannot store %T in %T", ErrRefType, v, r)
	}
	r.Set(t)
	return nil
}

func (r *Ref[T]) isRef() {}

// PropertyRef is a ref bound to one key of a reactive object. Reading and
// writing it reads and writes the key through the proxy.
type PropertyRef struct {
	proxy *Proxy
	key   string
}

// ToRef returns a ref for key of p.
func ToRef(p *Proxy, key string) *PropertyRef {
	return &PropertyRef{proxy: p, key: key}
}

// Key returns the bound key.
func (r *PropertyRef) Key() string {
	return r.key
}

// Get reads the key through the proxy.
func (r *PropertyRef) Get() any {
	return r.proxy.Get(r.key)
}

// Set writes the key through the proxy.
func (r *PropertyRef) Set(v any) {
	r.proxy.Set(r.key, v)
}

// GetAny implements AnyRef.
func (r *PropertyRef) GetAny() any {
	return r.Get()
}

// SetAny implements AnyRef. It fails with ErrReadonly on a readonly proxy.
func (r *PropertyRef) SetAny(v any) error {
	if r.proxy.IsReadonly() {
		r.proxy.Set(r.key, v)
		return ErrReadonly
	}
	r.Set(v)
	return nil
}

func (r *PropertyRef) isRef() {}

// Refs maps every key of an object to its PropertyRef.
type Refs map[string]*PropertyRef

// ToRefs converts each own key of p to a PropertyRef. Enumerating the keys
// subscribes the active effect to the key set of p.
func ToRefs(p *Proxy) Refs {
	keys := p.Keys()
	refs := make(Refs, len(keys))
	for _, k := range keys {
		refs[k] = ToRef(p, k)
	}
	return refs
}

// Fields returns the refs as a FieldSource suitable for ProxyRefs.
func (r Refs) Fields() Fields {
	f := make(Fields, len(r))
	for k, ref := range r {
		f[k] = ref
	}
	return f
}

// FieldSource is a keyed value container. *Proxy and Fields implement it.
type FieldSource interface {
	Get(key string) any
	Set(key string, value any)
	Keys() []string
}

// Fields is a plain FieldSource. Keys are reported sorted.
type Fields map[string]any

// Get returns the value of key.
func (f Fields) Get(key string) any {
	return f[key]
}

// Set sets key.
func (f Fields) Set(key string, value any) {
	f[key] = value
}

// Keys returns the keys in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RefsView reads and writes a FieldSource with refs unwrapped.
type RefsView struct {
	src FieldSource
}

// ProxyRefs returns a view of src in which ref-valued fields read as their
// value and plain assignments to them write through the ref.
func ProxyRefs(src FieldSource) *RefsView {
	return &RefsView{src: src}
}

// Get returns the field value, unwrapping refs.
func (v *RefsView) Get(key string) any {
	x := v.src.Get(key)
	if r, ok := x.(AnyRef); ok {
		return r.GetAny()
	}
	return x
}

// Set writes key. When the field holds a ref and value is not itself a ref,
// the ref is written; otherwise the field is replaced.
func (v *RefsView) Set(key string, value any) error {
	if r, ok := v.src.Get(key).(AnyRef); ok {
		if _, isRef := value.(AnyRef); !isRef {
			return r.SetAny(value)
		}
	}
	v.src.Set(key, value)
	return nil
}

// Keys returns the keys of the underlying source.
func (v *RefsView) Keys() []string {
	return v.src.Keys()
}

// IsRef reports whether v is a ref.
func IsRef(v any) bool {
	_, ok := v.(AnyRef)
	return ok
}

// Unref returns the value of a ref, or v itself.
func Unref(v any) any {
	if r, ok := v.(AnyRef); ok {
		return r.GetAny()
	}
	return v
}
