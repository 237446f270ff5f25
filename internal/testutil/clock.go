// Package testutil holds the deterministic stand-ins the harness and tests
// use for session ids and trace sequencing.
package testutil

import (
	"sync"

	"github.com/roach88/consteval/internal/eval"
)

var _ eval.Sequencer = (*DeterministicClock)(nil)

// DeterministicClock is a resettable logical clock for trace events.
//
// Unlike eval.Clock, DeterministicClock can be reset between evaluations so
// every case of a scenario numbers its lifecycle events from 1.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock starting at 0.
// The first call to Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to 0 and returns the sequence number it had.
func (c *DeterministicClock) Reset() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := c.seq
	c.seq = 0
	return last
}
