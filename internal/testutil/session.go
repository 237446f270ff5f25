package testutil

import "github.com/roach88/consteval/internal/eval"

// DefaultSessionID is used when a scenario does not name its session.
const DefaultSessionID = "test-session"

var _ eval.IDGenerator = (*FixedSessionGenerator)(nil)

// FixedSessionGenerator returns the same session id every time, so records
// and golden snapshots of a scenario are byte-identical across runs.
//
// Unlike eval.FixedGenerator, which hands out a list of ids once each, this
// generator never runs out.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator returning id, or
// DefaultSessionID when id is empty.
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = DefaultSessionID
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session id.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
