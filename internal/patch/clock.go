package patch

import "sync/atomic"

// Clock is the monotonic logical clock stamping audit records.
// Sequence numbers, never wall-clock timestamps, order outcomes within a
// weave run - wall clocks race and repeat.
//
// Thread-safety: safe for concurrent use (atomic operations), although
// weaving itself is serialized.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
