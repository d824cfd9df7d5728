package clock

import "sync/atomic"

// Timestamp holds the most recently observed stop time in unix seconds.
//
// The subscriber writes it and the render loop reads it from different
// goroutines, so every access goes through an atomic. Writes are
// last-writer-wins.
type Timestamp struct {
	v atomic.Int64
}

// NewTimestamp returns a Timestamp seeded with ts.
func NewTimestamp(ts int64) *Timestamp {
	t := &Timestamp{}
	t.v.Store(ts)
	return t
}

// Load returns the current value.
func (t *Timestamp) Load() int64 {
	return t.v.Load()
}

// Store overwrites the current value.
func (t *Timestamp) Store(ts int64) {
	t.v.Store(ts)
}
