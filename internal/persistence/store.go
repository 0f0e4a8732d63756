package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
)

// SolutionStore persists solved domain.Solutions for later retrieval by run
// id or fingerprint, independent of the result cache in internal/cache
// (the cache is a TTL'd fast path; this is the durable record).
type SolutionStore struct {
	db *DB
}

// NewSolutionStore wraps an open DB.
func NewSolutionStore(db *DB) *SolutionStore {
	return &SolutionStore{db: db}
}

// Save inserts or replaces the row for sol.RunID.
func (s *SolutionStore) Save(ctx context.Context, sol *domain.Solution) error {
	payload, err := json.Marshal(sol)
	if err != nil {
		return fmt.Errorf("persistence: marshal solution: %w", err)
	}

	const q = `
		INSERT INTO solutions (run_id, config_fingerprint, status, score, optimality_gap, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			config_fingerprint = EXCLUDED.config_fingerprint,
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			optimality_gap = EXCLUDED.optimality_gap,
			payload = EXCLUDED.payload`

	if _, err := s.db.SQL.ExecContext(ctx, q,
		sol.RunID, sol.ConfigFingerprint, sol.Status.String(), sol.Score, sol.OptimalityGapAchieved, payload,
	); err != nil {
		return fmt.Errorf("persistence: save solution %s: %w", sol.RunID, err)
	}
	return nil
}

// Get retrieves a solution by run id. Returns (nil, nil) when not found.
func (s *SolutionStore) Get(ctx context.Context, runID string) (*domain.Solution, error) {
	const q = `SELECT payload FROM solutions WHERE run_id = $1`

	var payload []byte
	err := s.db.SQL.QueryRowContext(ctx, q, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: get solution %s: %w", runID, err)
	}

	var sol domain.Solution
	if err := json.Unmarshal(payload, &sol); err != nil {
		return nil, fmt.Errorf("persistence: unmarshal solution %s: %w", runID, err)
	}
	return &sol, nil
}

// ListByFingerprint returns every solution previously solved under the
// given config fingerprint, most recent first, capped at limit rows.
func (s *SolutionStore) ListByFingerprint(ctx context.Context, fingerprint string, limit int) ([]domain.Solution, error) {
	const q = `
		SELECT payload FROM solutions
		WHERE config_fingerprint = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.SQL.QueryContext(ctx, q, fingerprint, limit)
	if err != nil {
		return nil, fmt.Errorf("persistence: list solutions for %s: %w", fingerprint, err)
	}
	defer rows.Close()

	var out []domain.Solution
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("persistence: scan solution row: %w", err)
		}
		var sol domain.Solution
		if err := json.Unmarshal(payload, &sol); err != nil {
			return nil, fmt.Errorf("persistence: unmarshal solution row: %w", err)
		}
		out = append(out, sol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("persistence: iterate solution rows: %w", err)
	}
	return out, nil
}

// Delete removes a solution by run id.
func (s *SolutionStore) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.SQL.ExecContext(ctx, `DELETE FROM solutions WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("persistence: delete solution %s: %w", runID, err)
	}
	return nil
}
