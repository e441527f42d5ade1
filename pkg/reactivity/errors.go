package reactivity

import (
	"errors"
	"fmt"
)

// ErrReadonly is carried by the Diagnostic reported when a write, delete or
// array mutation is attempted through a readonly wrapper.
var ErrReadonly = errors.New("reactivity: target is readonly")

// ErrRefType is raised when AnyRef.SetAny receives a value the ref cannot hold.
var ErrRefType = errors.New("reactivity: value type does not match ref")

// ErrNotReactive is returned when an operation needs a wrapper or a ref but
// received a plain value.
var ErrNotReactive = errors.New("reactivity: value is not reactive")

// ErrLoopClosed is returned by Loop.Post after the loop has been closed.
var ErrLoopClosed = errors.New("reactivity: loop closed")

// ErrQueueFull is returned by Loop.Post when the task queue is full.
var ErrQueueFull = errors.New("reactivity: loop queue full")

// CodeReadonlyMutation identifies a refused mutation of a readonly target.
const CodeReadonlyMutation = "R001"

// Op names the intercepted operation a Diagnostic refers to.
type Op string

const (
	OpSet       Op = "set"
	OpDelete    Op = "delete"
	OpSetLength Op = "length"
	OpPush      Op = "push"
	OpPop       Op = "pop"
	OpShift     Op = "shift"
	OpUnshift   Op = "unshift"
	OpSplice    Op = "splice"
)

// Diagnostic describes a non-fatal problem detected by the engine.
// Diagnostics never interrupt the caller; they are delivered to the
// configured Observer and, depending on the ReadonlyPolicy, logged or raised.
type Diagnostic struct {
	// Code is a stable identifier such as CodeReadonlyMutation.
	Code string

	// Op is the operation that was refused.
	Op Op

	// Target is the handle of the raw target.
	Target uint64

	// Key is the printable dependency key (see KeyString).
	Key string

	// Err is the underlying sentinel error.
	Err error
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s %q on target %d: %v", d.Code, d.Op, d.Key, d.Target, d.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (d *Diagnostic) Unwrap() error {
	return d.Err
}
