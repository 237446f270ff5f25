package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReadEvaluation_RoundTrip tests that every column survives a write and
// read.
func TestReadEvaluation_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestEvaluation("digest-1", "square", "")
	ev.Request.Call = true
	ev.Request.Args = []string{"4"}
	ev.Constant = false
	ev.Failure = &Failure{Kind: "overflow", Message: "value 4294967296 is outside the range of representable values of type 'int'", Notes: []Note{}}
	ev.Steps = 17

	_, err := s.WriteEvaluation(ctx, ev)
	require.NoError(t, err)

	got, err := s.ReadEvaluation(ctx, ev.Key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Seq)
	got.Seq = 0
	assert.Equal(t, ev, got)
}

// TestHistory tests newest-first listing and the limit.
func TestHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.History(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.WriteEvaluation(ctx, createTestEvaluation("digest-1", name, "1"))
		require.NoError(t, err)
	}

	all, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Request.Target)
	assert.Equal(t, "a", all[2].Request.Target)

	two, err := s.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, "b", two[1].Request.Target)
}

// TestReadProgram tests filtering by program digest in recording order.
func TestReadProgram(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, ev := range []Evaluation{
		createTestEvaluation("digest-1", "x", "1"),
		createTestEvaluation("digest-2", "y", "2"),
		createTestEvaluation("digest-1", "z", "3"),
	} {
		_, err := s.WriteEvaluation(ctx, ev)
		require.NoError(t, err)
	}

	evs, err := s.ReadProgram(ctx, "digest-1")
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "x", evs[0].Request.Target)
	assert.Equal(t, "z", evs[1].Request.Target)

	none, err := s.ReadProgram(ctx, "digest-3")
	require.NoError(t, err)
	assert.Empty(t, none)
}
