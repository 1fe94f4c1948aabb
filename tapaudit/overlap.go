package tapaudit

import (
	"net/url"

	"github.com/hazyhaar/taptarget/geom"
)

// tooSmall reports whether every client rect of t is under the finger size
// on at least one axis. A target without rects is never too small.
func tooSmall(t *Target, fingerSize float64) bool {
	if len(t.ClientRects) == 0 {
		return false
	}
	for _, r := range t.ClientRects {
		if r.Width >= fingerSize && r.Height >= fingerSize {
			return false
		}
	}
	return true
}

// detectOverlaps returns, in detection order, one failure per ordered
// (subject, neighbour) pair where a tap aimed at the undersized subject is
// likely to hit the neighbour.
func detectOverlaps(targets []Target, cfg Config) []OverlapFailure {
	var failures []OverlapFailure
	for i := range targets {
		subject := &targets[i]
		if !tooSmall(subject, cfg.FingerSize) {
			continue
		}
		regions := geom.TappableRegions(subject.ClientRects)
		for j := range targets {
			if i == j {
				continue
			}
			if f, ok := pairFailure(subject, regions, &targets[j], cfg); ok {
				failures = append(failures, f)
			}
		}
	}
	return failures
}

// pairFailure returns the worst rect-pair failure between subject and other.
func pairFailure(subject *Target, regions []geom.Rect, other *Target, cfg Config) (OverlapFailure, bool) {
	if isHTTPLink(subject.Href) && subject.Href == other.Href {
		return OverlapFailure{}, false
	}
	// Nested controls (an icon inside a list row) are taken as intentional.
	if allNested(regions, other.ClientRects) {
		return OverlapFailure{}, false
	}

	var worst OverlapFailure
	found := false
	for _, region := range regions {
		for _, rect := range other.ClientRects {
			f, ok := rectFailure(region, rect, cfg)
			if !ok {
				continue
			}
			if !found || f.OverlapScoreRatio > worst.OverlapScoreRatio {
				worst = OverlapFailure{RectFailure: f, TapTarget: subject, OverlappingTarget: other}
				found = true
			}
		}
	}
	return worst, found
}

// rectFailure scores a tap aimed at the centre of region against rect.
func rectFailure(region, rect geom.Rect, cfg Config) (RectFailure, bool) {
	finger := geom.SquareCenteredOn(region, cfg.FingerSize)
	tapScore := geom.IntersectionArea(finger, region)
	if tapScore <= 0 {
		return RectFailure{}, false
	}
	overlapScore := geom.IntersectionArea(finger, rect)
	ratio := overlapScore / tapScore
	if ratio < cfg.MaxOverlapRatio {
		return RectFailure{}, false
	}
	return RectFailure{
		OverlapScoreRatio:      ratio,
		TapTargetScore:         tapScore,
		OverlappingTargetScore: overlapScore,
	}, true
}

// allNested reports whether, for every pair drawn from a and b, one rect
// contains the other.
func allNested(a, b []geom.Rect) bool {
	for _, ra := range a {
		for _, rb := range b {
			if !geom.Contains(ra, rb) && !geom.Contains(rb, ra) {
				return false
			}
		}
	}
	return true
}

func isHTTPLink(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
