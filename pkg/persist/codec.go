// Package persist saves and restores snapshots of reactive state.
//
// Snapshots are JSON documents that keep the key order of *Object values.
// A Binding watches a reactive target and writes a new snapshot to a Store
// after every task that changed it.
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

// ErrCycle is returned by Encode when the value graph contains a cycle.
var ErrCycle = errors.New("persist: cyclic value")

// ErrTrailingData is returned by Decode when input continues after the
// first JSON value.
var ErrTrailingData = errors.New("persist: trailing data after value")

// Encode renders a raw target tree as JSON. Wrappers are encoded through
// their raw target and refs through their value; objects keep their key
// order. Values other than objects and arrays are encoded with
// encoding/json, so NaN and infinities are rejected.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := encoder{w: &buf, active: make(map[uint64]struct{})}
	if err := enc.encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type encoder struct {
	w *bytes.Buffer

	// active holds the handles on the current path; a repeat is a cycle.
	active map[uint64]struct{}
}

func (e *encoder) enter(id uint64) error {
	if _, ok := e.active[id]; ok {
		return fmt.Errorf("%w at target %d", ErrCycle, id)
	}
	e.active[id] = struct{}{}
	return nil
}

func (e *encoder) encode(v any) error {
	if r, ok := v.(reactivity.AnyRef); ok {
		v = r.GetAny()
	}
	switch x := reactivity.ToRaw(v).(type) {
	case *reactivity.Object:
		if err := e.enter(x.ID()); err != nil {
			return err
		}
		defer delete(e.active, x.ID())

		e.w.WriteByte('{')
		for i, k := range x.Keys() {
			if i > 0 {
				e.w.WriteByte(',')
			}
			key, _ := json.Marshal(k)
			e.w.Write(key)
			e.w.WriteByte(':')
			val, _ := x.Get(k)
			if err := e.encode(val); err != nil {
				return err
			}
		}
		e.w.WriteByte('}')
		return nil

	case *reactivity.Array:
		if err := e.enter(x.ID()); err != nil {
			return err
		}
		defer delete(e.active, x.ID())

		e.w.WriteByte('[')
		for i, el := range x.Items() {
			if i > 0 {
				e.w.WriteByte(',')
			}
			if err := e.encode(el); err != nil {
				return err
			}
		}
		e.w.WriteByte(']')
		return nil

	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Errorf("persist: encode %T: %w", x, err)
		}
		e.w.Write(b)
		return nil
	}
}

// Decode parses JSON into raw targets: objects become *Object with the
// document's key order, arrays become *Array, integral numbers become int
// and other numbers float64.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("persist: decode: %w", err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			o := reactivity.NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("persist: decode: %w", err)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				o.Set(kt.(string), v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("persist: decode: %w", err)
			}
			return o, nil
		case '[':
			a := reactivity.NewArray()
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				a.Append(v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("persist: decode: %w", err)
			}
			return a, nil
		}
		return nil, fmt.Errorf("persist: decode: unexpected %v", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("persist: decode number %q: %w", t, err)
		}
		return f, nil
	default:
		// string, bool or nil
		return t, nil
	}
}

// Snapshot is a saved state with its identity.
type Snapshot struct {
	ID      string
	SavedAt time.Time
	State   any
}

type snapshotWire struct {
	ID      string          `json:"id"`
	SavedAt time.Time       `json:"savedAt"`
	State   json.RawMessage `json:"state"`
}

// NewSnapshot wraps state in a Snapshot with a fresh id.
func NewSnapshot(state any) Snapshot {
	return Snapshot{ID: uuid.NewString(), SavedAt: time.Now().UTC(), State: state}
}

// EncodeSnapshot renders s as {"id", "savedAt", "state"}.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	state, err := Encode(s.State)
	if err != nil {
		return nil, err
	}
	return json.Marshal(snapshotWire{ID: s.ID, SavedAt: s.SavedAt, State: state})
}

// DecodeSnapshot parses a document produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var w snapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Snapshot{}, fmt.Errorf("persist: decode snapshot: %w", err)
	}
	if len(w.State) == 0 {
		return Snapshot{}, errors.New("persist: decode snapshot: missing state")
	}
	state, err := Decode(w.State)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ID: w.ID, SavedAt: w.SavedAt, State: state}, nil
}
