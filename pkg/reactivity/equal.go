package reactivity

import (
	"math"
	"reflect"
)

// SameValue reports whether a write of b over a is a no-op. It is strict
// equality except that NaN equals NaN. Values that cannot be compared with ==
// (slices, maps, structs holding them in interface fields) fall back to
// reflect.DeepEqual.
func SameValue(a, b any) bool {
	if isNaN(a) && isNaN(b) {
		return true
	}
	return strictEqual(a, b)
}

// strictEqual is the equality used by IndexOf and LastIndexOf: NaN matches
// nothing, including itself.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	// Comparable on the values also inspects interface fields, which the
	// static type check cannot see.
	if reflect.ValueOf(a).Comparable() && reflect.ValueOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func isNaN(v any) bool {
	switch f := v.(type) {
	case float64:
		return math.IsNaN(f)
	case float32:
		return math.IsNaN(float64(f))
	default:
		return false
	}
}
