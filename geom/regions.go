package geom

import "math"

// alignSlack is how far apart two edges may be and still line up.
const alignSlack = 2

// TappableRegions collapses a target's raw client rects into the regions a
// user could aim at. Wrapped inline text yields several overlapping or
// adjoining line boxes; those merge into one region. Disjoint fragments stay
// separate. The input slice is not modified.
func TappableRegions(clientRects []Rect) []Rect {
	regions := dropContained(clientRects)
	regions = dropTiny(regions)
	regions = mergeTouching(regions)
	return dropContained(regions)
}

// dropContained removes every rect that another surviving rect contains.
// Of two identical rects, the later one survives.
func dropContained(rects []Rect) []Rect {
	removed := make([]bool, len(rects))
	for i, r := range rects {
		for j, other := range rects {
			if i == j || removed[j] {
				continue
			}
			if Contains(other, r) {
				removed[i] = true
				break
			}
		}
	}
	kept := make([]Rect, 0, len(rects))
	for i, r := range rects {
		if !removed[i] {
			kept = append(kept, r)
		}
	}
	return kept
}

// dropTiny removes sub-pixel fragments that nobody could aim at.
func dropTiny(rects []Rect) []Rect {
	kept := make([]Rect, 0, len(rects))
	for _, r := range rects {
		if r.Width > 1 && r.Height > 1 {
			kept = append(kept, r)
		}
	}
	return kept
}

// mergeTouching repeatedly replaces a pair of touching, lined-up rects by
// their bounding rect. A merge is refused when the bounding rect's centre
// falls outside both inputs: the merged shape would no longer resemble
// either of them.
func mergeTouching(rects []Rect) []Rect {
	for {
		i, j, merged, ok := findMerge(rects)
		if !ok {
			return rects
		}
		next := make([]Rect, 0, len(rects)-1)
		for k, r := range rects {
			if k != i && k != j {
				next = append(next, r)
			}
		}
		rects = append(next, merged)
	}
}

func findMerge(rects []Rect) (i, j int, merged Rect, ok bool) {
	for i = range rects {
		for j = i + 1; j < len(rects); j++ {
			a, b := rects[i], rects[j]
			if !TouchOrOverlap(a, b) || !linedUp(a, b) {
				continue
			}
			bound := BoundingRect([]Rect{a, b})
			c := bound.Center()
			if !ContainsPoint(a, c) && !ContainsPoint(b, c) {
				continue
			}
			return i, j, bound, true
		}
	}
	return 0, 0, Rect{}, false
}

func linedUp(a, b Rect) bool {
	horizontal := almostEqual(a.Top, b.Top) || almostEqual(a.Bottom(), b.Bottom())
	vertical := almostEqual(a.Left, b.Left) || almostEqual(a.Right(), b.Right())
	return horizontal || vertical
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= alignSlack
}
