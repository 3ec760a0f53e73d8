package store

import (
	"context"
	"fmt"

	"github.com/roach88/loom/internal/patch"
)

// Record inserts one audit record. Implements patch.AuditSink.
//
// Uses ON CONFLICT DO NOTHING on the (run_token, seq) primary key, so
// writing the same record twice is a silent no-op.
func (s *Store) Record(ctx context.Context, rec patch.AuditRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patch_audit
		(run_token, seq, mixin, target, method, spec, kind, phase, status, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.RunToken,
		rec.Seq,
		rec.Mixin,
		rec.Target,
		rec.Method,
		rec.Spec,
		rec.Kind,
		rec.Phase,
		rec.Status,
		rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

// ReadRun returns every audit record of one weave run in seq order.
// Returns an empty slice (not nil) when the run token is unknown.
func (s *Store) ReadRun(ctx context.Context, runToken string) ([]patch.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_token, seq, mixin, target, method, spec, kind, phase, status, detail
		FROM patch_audit
		WHERE run_token = ?
		ORDER BY seq ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query audit run: %w", err)
	}
	defer rows.Close()

	records := []patch.AuditRecord{}
	for rows.Next() {
		var rec patch.AuditRecord
		if err := rows.Scan(
			&rec.RunToken,
			&rec.Seq,
			&rec.Mixin,
			&rec.Target,
			&rec.Method,
			&rec.Spec,
			&rec.Kind,
			&rec.Phase,
			&rec.Status,
			&rec.Detail,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

// Runs returns every distinct run token in ascending order. UUIDv7 tokens
// sort by creation time, so this is also chronological order.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT run_token
		FROM patch_audit
		ORDER BY run_token ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan run token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return tokens, nil
}
