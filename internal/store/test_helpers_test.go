package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/consteval/internal/canon"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvaluation creates a constant evaluation of a global.
func createTestEvaluation(program, target, value string) Evaluation {
	req := canon.Request{
		Program:    program,
		Target:     target,
		Args:       []string{},
		Context:    "initializer",
		LeakPolicy: "strict",
		MaxSteps:   1000,
		MaxDepth:   64,
	}
	return Evaluation{
		Key:       canon.MustEvaluationKey(req),
		SessionID: "session-" + target,
		Source:    "prog.cue",
		Request:   req,
		Constant:  true,
		Value:     value,
		Steps:     3,
	}
}

func contains(items []string, item string) bool {
	for _, s := range items {
		if s == item {
			return true
		}
	}
	return false
}
