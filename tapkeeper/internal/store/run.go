package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazyhaar/taptarget/dbopen"
	"github.com/hazyhaar/taptarget/tapaudit"
)

// Run is one persisted audit of one page.
type Run struct {
	ID        string          `json:"id"`
	PageURL   string          `json:"page_url"`
	AuditID   string          `json:"audit_id"`
	Result    tapaudit.Result `json:"result"`
	CreatedAt int64           `json:"created_at"` // unix ms
}

// RunSummary is a Run without its table.
type RunSummary struct {
	ID           string   `json:"id"`
	PageURL      string   `json:"page_url"`
	Pass         bool     `json:"pass"`
	Skipped      bool     `json:"skipped"`
	Score        *float64 `json:"score"`
	DisplayValue string   `json:"display_value,omitempty"`
	TargetCount  int      `json:"target_count"`
	FailingCount int      `json:"failing_count"`
	CreatedAt    int64    `json:"created_at"`
}

// InsertRun stores r and its rows in one transaction.
func (s *Store) InsertRun(ctx context.Context, r *Run) error {
	blob, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("store: marshal result: %w", err)
	}
	res := r.Result

	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs
				(id, page_url, audit_id, pass, skipped, score, display_value, explanation,
				 target_count, failing_count, result, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			r.ID, r.PageURL, r.AuditID, res.Pass, res.Skipped, res.Score, res.DisplayValue,
			res.Explanation, res.TargetCount, res.FailingCount, string(blob), r.CreatedAt)
		if err != nil {
			return fmt.Errorf("store: insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO run_rows
				(run_id, position, tap_target_selector, tap_target_label, size,
				 overlapping_selector, overlapping_label, overlap_ratio)
			VALUES (?,?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("store: prepare rows: %w", err)
		}
		defer stmt.Close()
		for i, row := range res.Rows {
			if _, err := stmt.ExecContext(ctx, r.ID, i,
				row.TapTarget.Selector, row.TapTarget.NodeLabel, row.Size,
				row.OverlappingTarget.Selector, row.OverlappingTarget.NodeLabel,
				row.OverlapScoreRatio); err != nil {
				return fmt.Errorf("store: insert row %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetRun returns the run with id, or nil if there is none.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	r := &Run{}
	var blob string
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, page_url, audit_id, result, created_at FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.PageURL, &r.AuditID, &blob, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get run: %w", err)
	}
	if err := json.Unmarshal([]byte(blob), &r.Result); err != nil {
		return nil, fmt.Errorf("store: decode result: %w", err)
	}
	return r, nil
}

// ListRuns returns the newest runs first, optionally for one page.
// limit <= 0 means 50.
func (s *Store) ListRuns(ctx context.Context, pageURL string, limit int) ([]*RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, page_url, pass, skipped, score, display_value, target_count, failing_count, created_at
		FROM runs`
	args := []any{}
	if pageURL != "" {
		query += ` WHERE page_url = ?`
		args = append(args, pageURL)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []*RunSummary
	for rows.Next() {
		rs := &RunSummary{}
		var score sql.NullFloat64
		if err := rows.Scan(&rs.ID, &rs.PageURL, &rs.Pass, &rs.Skipped, &score,
			&rs.DisplayValue, &rs.TargetCount, &rs.FailingCount, &rs.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		if score.Valid {
			v := score.Float64
			rs.Score = &v
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// DeleteRunsBefore removes runs created before cutoff (unix ms) and returns
// how many went.
func (s *Store) DeleteRunsBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: delete runs: %w", err)
	}
	return res.RowsAffected()
}
