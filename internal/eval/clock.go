package eval

// Sequencer issues the sequence numbers that stamp trace events.
// Implemented by Clock and by testutil.DeterministicClock.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock stamping trace events.
//
// Events are ordered by seq, never by wall-clock time, so the same program
// always produces the same trace.
type Clock struct {
	seq int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq
}
