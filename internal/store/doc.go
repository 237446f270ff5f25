// Package store provides SQLite-backed durable storage for evaluation
// outcomes.
//
// Each row records one evaluation request (program digest, entry point,
// arguments, context and limits) together with its outcome: the rendered
// value, or the failure with its notes. Rows are keyed by the canonical
// hash of the request (canon.EvaluationKey) and are never updated, so the
// table doubles as a cache of past results and as a history that can be
// replayed to check determinism.
//
// # Ordering
//
// All listing queries order by seq, the insertion counter, and break ties
// by key COLLATE BINARY. Wall-clock time is never stored.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - user_version: schema migrations
package store
