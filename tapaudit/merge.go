package tapaudit

// mergeSymmetric collapses (A,B) and (B,A) into a single failure. The one
// with the higher ratio survives; on a tie the earlier-detected one does.
// Order of the survivors is preserved.
func mergeSymmetric(failures []OverlapFailure) []OverlapFailure {
	merged := make([]OverlapFailure, 0, len(failures))
	for i, f := range failures {
		mirror := -1
		for j, g := range failures {
			if g.TapTarget == f.OverlappingTarget && g.OverlappingTarget == f.TapTarget {
				mirror = j
				break
			}
		}
		if mirror < 0 {
			merged = append(merged, f)
			continue
		}
		m := failures[mirror]
		if f.OverlapScoreRatio > m.OverlapScoreRatio ||
			(f.OverlapScoreRatio == m.OverlapScoreRatio && i < mirror) {
			merged = append(merged, f)
		}
	}
	return merged
}
