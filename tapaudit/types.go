package tapaudit

import "github.com/hazyhaar/taptarget/geom"

// Node is the presentation metadata of a target. The engine never reads it;
// it is copied verbatim into table rows.
type Node struct {
	Snippet   string `json:"snippet,omitempty"`
	Path      string `json:"path,omitempty"`
	Selector  string `json:"selector,omitempty"`
	NodeLabel string `json:"node_label,omitempty"`
}

// Target is one interactive element of a rendered page.
// Two targets with identical geometry are still distinct: the engine tracks
// targets by their position in Artifacts.Targets.
type Target struct {
	ClientRects []geom.Rect `json:"client_rects"`
	Href        string      `json:"href,omitempty"`
	Node        Node        `json:"node"`
}

// Artifacts is everything a tap-target audit consumes from collection.
type Artifacts struct {
	// ViewportOptimized is false when the page has no mobile viewport meta.
	ViewportOptimized bool     `json:"viewport_optimized"`
	Targets           []Target `json:"targets"`
}

// RectFailure is the outcome of comparing one tappable region of the
// subject with one raw client rect of a neighbour.
type RectFailure struct {
	OverlapScoreRatio      float64 `json:"overlap_score_ratio"`
	TapTargetScore         float64 `json:"tap_target_score"`
	OverlappingTargetScore float64 `json:"overlapping_target_score"`
}

// OverlapFailure is the worst RectFailure for an ordered (subject,
// neighbour) target pair.
type OverlapFailure struct {
	RectFailure
	TapTarget         *Target
	OverlappingTarget *Target
}

// TableRow is the reporting record of one overlap failure.
type TableRow struct {
	TapTarget              Node    `json:"tap_target"`
	Size                   string  `json:"size"`
	Width                  int     `json:"width"`
	Height                 int     `json:"height"`
	OverlappingTarget      Node    `json:"overlapping_target"`
	TapTargetScore         float64 `json:"tap_target_score"`
	OverlappingTargetScore float64 `json:"overlapping_target_score"`
	OverlapScoreRatio      float64 `json:"overlap_score_ratio"`
}

// Result is the outcome of one audit run.
type Result struct {
	Pass bool `json:"pass"`
	// Score is nil when the audit was skipped.
	Score        *float64   `json:"score"`
	Skipped      bool       `json:"skipped,omitempty"`
	Explanation  string     `json:"explanation,omitempty"`
	DisplayValue string     `json:"display_value,omitempty"`
	Rows         []TableRow `json:"rows"`
	TargetCount  int        `json:"target_count"`
	FailingCount int        `json:"failing_count"`
}
