package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/roach88/consteval/internal/canon"
)

func TestWriteEvaluation_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ev := createTestEvaluation("digest-1", "answer", "42")

	inserted, err := s.WriteEvaluation(ctx, ev)
	if err != nil {
		t.Fatalf("WriteEvaluation() failed: %v", err)
	}
	if !inserted {
		t.Error("first write should insert a row")
	}

	var args, failure string
	err = s.db.QueryRow("SELECT args, failure FROM evaluations WHERE key = ?", ev.Key).Scan(&args, &failure)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if args != "[]" {
		t.Errorf("args = %q, want []", args)
	}
	if failure != "" {
		t.Errorf("failure = %q, want empty", failure)
	}
}

func TestWriteEvaluation_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ev := createTestEvaluation("digest-1", "answer", "42")

	if _, err := s.WriteEvaluation(ctx, ev); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	// Same key with a different session keeps the first row.
	ev.SessionID = "other"
	inserted, err := s.WriteEvaluation(ctx, ev)
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if inserted {
		t.Error("duplicate key should not insert")
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	got, err := s.ReadEvaluation(ctx, ev.Key)
	if err != nil {
		t.Fatalf("ReadEvaluation() failed: %v", err)
	}
	if got.SessionID != "session-answer" {
		t.Errorf("SessionID = %q, want session-answer", got.SessionID)
	}
}

func TestWriteEvaluation_FailureCanonicalJSON(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestEvaluation("digest-1", "leaky", "")
	ev.Constant = false
	ev.Failure = &Failure{
		Kind:    "memory-leak",
		Message: "allocated storage was not deallocated",
		Anchor:  "prog.cue:3:1",
		Notes:   []Note{{Message: "heap allocation performed here", Anchor: "prog.cue:2:9"}},
	}
	if _, err := s.WriteEvaluation(ctx, ev); err != nil {
		t.Fatalf("WriteEvaluation() failed: %v", err)
	}

	var failure string
	if err := s.db.QueryRow("SELECT failure FROM evaluations WHERE key = ?", ev.Key).Scan(&failure); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	want := `{"anchor":"prog.cue:3:1","kind":"memory-leak","message":"allocated storage was not deallocated",` +
		`"notes":[{"anchor":"prog.cue:2:9","message":"heap allocation performed here"}]}`
	if failure != want {
		t.Errorf("failure = %s\nwant      %s", failure, want)
	}
}

func TestReadEvaluation_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadEvaluation(context.Background(), canon.MustEvaluationKey(canon.Request{}))
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadEvaluation() error = %v, want sql.ErrNoRows", err)
	}
}
