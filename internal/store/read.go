package store

import (
	"context"
	"database/sql"
	"fmt"
)

const evaluationColumns = `
	seq, key, session_id, source, program_digest, target, call, args, context,
	leak_policy, max_steps, max_depth, constant, value, failure, steps`

// ReadEvaluation retrieves the evaluation recorded under key.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadEvaluation(ctx context.Context, key string) (Evaluation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+evaluationColumns+`
		FROM evaluations
		WHERE key = ?
	`, key)
	return scanEvaluation(row)
}

// History returns the most recent evaluations, newest first. A limit of
// zero or less returns every row.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) History(ctx context.Context, limit int) ([]Evaluation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT`+evaluationColumns+`
		FROM evaluations
		ORDER BY seq DESC, key COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return collect(rows)
}

// ReadProgram returns every evaluation recorded for a program digest in
// the order they were recorded.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ReadProgram(ctx context.Context, digest string) ([]Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT`+evaluationColumns+`
		FROM evaluations
		WHERE program_digest = ?
		ORDER BY seq ASC, key COLLATE BINARY ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query program evaluations: %w", err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]Evaluation, error) {
	defer rows.Close()

	evs := []Evaluation{}
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return evs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(sc scanner) (Evaluation, error) {
	var (
		ev          Evaluation
		argsJSON    string
		failureJSON string
	)
	err := sc.Scan(
		&ev.Seq,
		&ev.Key,
		&ev.SessionID,
		&ev.Source,
		&ev.Request.Program,
		&ev.Request.Target,
		&ev.Request.Call,
		&argsJSON,
		&ev.Request.Context,
		&ev.Request.LeakPolicy,
		&ev.Request.MaxSteps,
		&ev.Request.MaxDepth,
		&ev.Constant,
		&ev.Value,
		&failureJSON,
		&ev.Steps,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Evaluation{}, err
		}
		return Evaluation{}, fmt.Errorf("scan evaluation: %w", err)
	}

	if ev.Request.Args, err = unmarshalArgs(argsJSON); err != nil {
		return Evaluation{}, err
	}
	if ev.Failure, err = unmarshalFailure(failureJSON); err != nil {
		return Evaluation{}, err
	}
	return ev, nil
}
