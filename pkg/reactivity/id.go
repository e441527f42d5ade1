package reactivity

import "sync/atomic"

// handleSeq numbers raw targets, effects, refs and computed values. It is
// shared by all engines so a raw target has one handle across engines, and
// trigger ordering by effect handle follows creation order.
var handleSeq atomic.Uint64

// nextID returns a fresh handle. Zero is never returned.
func nextID() uint64 {
	return handleSeq.Add(1)
}
