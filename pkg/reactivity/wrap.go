package reactivity

// Mode selects the flavour of a wrapper.
type Mode uint8

const (
	// ModeDeep tracks reads, allows writes and wraps nested targets on read.
	ModeDeep Mode = 0

	// ModeShallow returns nested targets raw.
	ModeShallow Mode = 1 << 0

	// ModeReadonly refuses writes and does not track reads. Nested targets
	// are wrapped readonly too.
	ModeReadonly Mode = 1 << 1

	modeCount = 4
)

// Shallow reports whether nested targets are returned raw.
func (m Mode) Shallow() bool { return m&ModeShallow != 0 }

// Readonly reports whether writes are refused.
func (m Mode) Readonly() bool { return m&ModeReadonly != 0 }

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeDeep:
		return "reactive"
	case ModeShallow:
		return "shallowReactive"
	case ModeReadonly:
		return "readonly"
	case ModeShallow | ModeReadonly:
		return "shallowReadonly"
	default:
		return "invalid"
	}
}

// Reactive returns the deep mutable wrapper of o.
// Wrapping the same object again returns the same *Proxy.
func (e *Engine) Reactive(o *Object) *Proxy {
	return e.wrapObject(o, ModeDeep)
}

// ShallowReactive returns a mutable wrapper that tracks only top-level keys.
func (e *Engine) ShallowReactive(o *Object) *Proxy {
	return e.wrapObject(o, ModeShallow)
}

// Readonly returns the deep readonly wrapper of o.
func (e *Engine) Readonly(o *Object) *Proxy {
	return e.wrapObject(o, ModeReadonly)
}

// ShallowReadonly returns a wrapper whose top-level keys are readonly.
func (e *Engine) ShallowReadonly(o *Object) *Proxy {
	return e.wrapObject(o, ModeShallow|ModeReadonly)
}

// ReactiveArray returns the deep mutable wrapper of a.
func (e *Engine) ReactiveArray(a *Array) *ArrayProxy {
	return e.wrapArray(a, ModeDeep)
}

// ShallowReactiveArray returns a mutable wrapper that does not wrap elements.
func (e *Engine) ShallowReactiveArray(a *Array) *ArrayProxy {
	return e.wrapArray(a, ModeShallow)
}

// ReadonlyArray returns the deep readonly wrapper of a.
func (e *Engine) ReadonlyArray(a *Array) *ArrayProxy {
	return e.wrapArray(a, ModeReadonly)
}

// ShallowReadonlyArray returns a readonly wrapper that does not wrap elements.
func (e *Engine) ShallowReadonlyArray(a *Array) *ArrayProxy {
	return e.wrapArray(a, ModeShallow|ModeReadonly)
}

// Wrap wraps a raw *Object or *Array (or re-wraps the raw target of an
// existing wrapper) with the given mode. Any other value is returned as is.
func (e *Engine) Wrap(v any, mode Mode) any {
	switch x := ToRaw(v).(type) {
	case *Object:
		return e.wrapObject(x, mode)
	case *Array:
		return e.wrapArray(x, mode)
	default:
		return v
	}
}

// wrapNested wraps a value read through a deep wrapper of the given mode.
func (e *Engine) wrapNested(v any, mode Mode) any {
	switch x := v.(type) {
	case *Object:
		return e.wrapObject(x, mode)
	case *Array:
		return e.wrapArray(x, mode)
	default:
		return v
	}
}

func (e *Engine) wrapObject(o *Object, mode Mode) *Proxy {
	if o == nil {
		return nil
	}
	if o.views == nil {
		o.views = make(map[*Engine]*[modeCount]*Proxy)
	}
	slot := o.views[e]
	if slot == nil {
		slot = new([modeCount]*Proxy)
		o.views[e] = slot
	}
	if p := slot[mode]; p != nil {
		return p
	}
	p := &Proxy{engine: e, raw: o, mode: mode}
	slot[mode] = p
	return p
}

func (e *Engine) wrapArray(a *Array, mode Mode) *ArrayProxy {
	if a == nil {
		return nil
	}
	if a.views == nil {
		a.views = make(map[*Engine]*[modeCount]*ArrayProxy)
	}
	slot := a.views[e]
	if slot == nil {
		slot = new([modeCount]*ArrayProxy)
		a.views[e] = slot
	}
	if p := slot[mode]; p != nil {
		return p
	}
	p := &ArrayProxy{engine: e, raw: a, mode: mode}
	slot[mode] = p
	return p
}

// ToRaw returns the raw target behind a wrapper, or v itself.
func ToRaw(v any) any {
	switch x := v.(type) {
	case *Proxy:
		if x == nil {
			return v
		}
		return x.raw
	case *ArrayProxy:
		if x == nil {
			return v
		}
		return x.raw
	default:
		return v
	}
}

// IsReactive reports whether v is a mutable wrapper.
func IsReactive(v any) bool {
	switch x := v.(type) {
	case *Proxy:
		return x != nil && !x.mode.Readonly()
	case *ArrayProxy:
		return x != nil && !x.mode.Readonly()
	default:
		return false
	}
}

// IsReadonly reports whether v is a readonly wrapper.
func IsReadonly(v any) bool {
	switch x := v.(type) {
	case *Proxy:
		return x != nil && x.mode.Readonly()
	case *ArrayProxy:
		return x != nil && x.mode.Readonly()
	default:
		return false
	}
}
