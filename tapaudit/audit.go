// Package tapaudit scores how reliably the interactive elements of a page can
// be tapped on a touch screen.
//
// A target is too small when none of its client rects reaches the finger
// size on both axes. For every too-small target the engine simulates a
// finger-sized tap at the centre of each of its tappable regions and
// measures how much of that tap lands on every other target. Mirror
// failures between the same two targets are reported once.
//
// The package is pure: no I/O, no logging, no shared state. Running the same
// Artifacts twice yields the same Result.
//
// Usage:
//
//	a := tapaudit.New(tapaudit.Config{})
//	res := a.Audit(artifacts)
package tapaudit

// ExplanationViewportNotOptimized is reported when the audit is skipped.
const ExplanationViewportNotOptimized = "Tap targets are too small because there's no viewport meta tag optimized for mobile screens"

// Meta describes an audit for registries and reports.
type Meta struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	FailureTitle      string   `json:"failure_title"`
	Description       string   `json:"description"`
	RequiredArtifacts []string `json:"required_artifacts"`
}

// Audit is a page check: a pure function from collected artifacts to a
// result.
type Audit interface {
	Meta() Meta
	Audit(artifacts Artifacts) Result
}

// TapTargets is the tap-target sizing and spacing audit.
type TapTargets struct {
	cfg Config
}

var _ Audit = (*TapTargets)(nil)

// New creates a TapTargets audit. Zero fields of cfg take their defaults.
func New(cfg Config) *TapTargets {
	cfg.defaults()
	return &TapTargets{cfg: cfg}
}

// Config returns the effective configuration.
func (a *TapTargets) Config() Config { return a.cfg }

// Meta implements Audit.
func (a *TapTargets) Meta() Meta {
	return Meta{
		ID:           "tap-targets",
		Title:        "Tap targets are sized appropriately",
		FailureTitle: "Tap targets are not sized appropriately",
		Description: "Interactive elements like buttons and links should be large enough " +
			"(48x48px), and have enough space around them, to be easy enough to tap " +
			"without overlapping onto other elements.",
		RequiredArtifacts: []string{"ViewportOptimized", "Targets"},
	}
}

// Audit implements Audit.
func (a *TapTargets) Audit(artifacts Artifacts) Result {
	if !artifacts.ViewportOptimized {
		return Result{
			Skipped:     true,
			Explanation: ExplanationViewportNotOptimized,
		}
	}

	failures := detectOverlaps(artifacts.Targets, a.cfg)
	rows := buildTable(mergeSymmetric(failures))

	total := len(artifacts.Targets)
	failing := failingSubjects(failures)
	ratio := passingRatio(failing, total)
	score := ratio

	return Result{
		Pass:         len(rows) == 0,
		Score:        &score,
		DisplayValue: displayValue(ratio),
		Rows:         rows,
		TargetCount:  total,
		FailingCount: failing,
	}
}
