package store

import (
	"context"
	"fmt"
)

// WriteEvaluation inserts an evaluation record.
// Uses ON CONFLICT(key) DO NOTHING for idempotency: an identical request
// recorded earlier keeps its row. Reports whether a row was inserted.
//
// Arguments and failures are serialized to canonical JSON per RFC 8785.
func (s *Store) WriteEvaluation(ctx context.Context, ev Evaluation) (bool, error) {
	argsJSON, err := marshalArgs(ev.Request.Args)
	if err != nil {
		return false, fmt.Errorf("write evaluation: %w", err)
	}

	failureJSON, err := marshalFailure(ev.Failure)
	if err != nil {
		return false, fmt.Errorf("write evaluation: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations
		(key, session_id, source, program_digest, target, call, args, context,
		 leak_policy, max_steps, max_depth, constant, value, failure, steps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`,
		ev.Key,
		ev.SessionID,
		ev.Source,
		ev.Request.Program,
		ev.Request.Target,
		ev.Request.Call,
		argsJSON,
		ev.Request.Context,
		ev.Request.LeakPolicy,
		ev.Request.MaxSteps,
		ev.Request.MaxDepth,
		ev.Constant,
		ev.Value,
		failureJSON,
		ev.Steps,
	)
	if err != nil {
		return false, fmt.Errorf("write evaluation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write evaluation: %w", err)
	}
	return n == 1, nil
}
