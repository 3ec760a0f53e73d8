// Package store provides SQLite-backed durable storage for weave audit
// logs.
//
// The store is an append-only log of patch outcomes: one row per spec
// outcome (or descriptor exclusion), keyed by the run token of the weave
// that produced it.
//
// # Critical Patterns
//
// Logical time: ordering within a run uses the engine clock's seq INTEGER,
// never timestamps. Run tokens are UUIDv7, so runs themselves sort by
// creation time lexically.
//
// Deterministic reads: every query orders by (run_token, seq) so repeated
// reads of the same log are byte-identical.
//
// Idempotent writes: inserts use ON CONFLICT DO NOTHING on the
// (run_token, seq) primary key; replaying a record is a no-op.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: tolerate lock contention
//   - foreign_keys=ON
package store
