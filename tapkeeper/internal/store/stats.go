package store

import (
	"context"
	"fmt"
)

// Counts aggregates the runs table.
type Counts struct {
	Runs       int     `json:"runs"`
	Pages      int     `json:"pages"`
	Passed     int     `json:"passed"`
	Skipped    int     `json:"skipped"`
	FailedRows int     `json:"failed_rows"`
	MeanScore  float64 `json:"mean_score"`
}

// Count returns totals over all runs. MeanScore ignores skipped runs.
func (s *Store) Count(ctx context.Context) (*Counts, error) {
	c := &Counts{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT page_url),
		       COALESCE(SUM(pass), 0),
		       COALESCE(SUM(skipped), 0),
		       COALESCE(AVG(score), 0)
		FROM runs`).Scan(&c.Runs, &c.Pages, &c.Passed, &c.Skipped, &c.MeanScore)
	if err != nil {
		return nil, fmt.Errorf("store: count runs: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_rows`).Scan(&c.FailedRows); err != nil {
		return nil, fmt.Errorf("store: count rows: %w", err)
	}
	return c, nil
}

// Offender is a tap target that keeps failing across runs.
type Offender struct {
	Selector  string  `json:"selector"`
	Label     string  `json:"label,omitempty"`
	Failures  int     `json:"failures"`
	WorstRate float64 `json:"worst_overlap_ratio"`
}

// TopOffenders ranks tap targets by how many failure rows name them.
// Rows without a selector are ignored.
func (s *Store) TopOffenders(ctx context.Context, limit int) ([]*Offender, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT tap_target_selector, MAX(tap_target_label), COUNT(*), MAX(overlap_ratio)
		FROM run_rows
		WHERE tap_target_selector != ''
		GROUP BY tap_target_selector
		ORDER BY COUNT(*) DESC, MAX(overlap_ratio) DESC, tap_target_selector
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top offenders: %w", err)
	}
	defer rows.Close()

	var out []*Offender
	for rows.Next() {
		o := &Offender{}
		if err := rows.Scan(&o.Selector, &o.Label, &o.Failures, &o.WorstRate); err != nil {
			return nil, fmt.Errorf("store: scan offender: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
