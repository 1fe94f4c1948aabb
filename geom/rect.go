// Package geom provides the axis-aligned rectangle arithmetic used by the
// tap-target audit: overlap areas, finger-sized squares, containment and
// the reduction of raw client rects into distinct tappable regions.
//
// All coordinates are page pixels in a single post-layout space.
package geom

import "math"

// Rect is an axis-aligned rectangle. Width and Height are never negative.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a position in page pixels.
type Point struct {
	X float64
	Y float64
}

// Right returns the x-coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y-coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Area returns Width*Height.
func (r Rect) Area() float64 { return r.Width * r.Height }

// Center returns the centre point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// IntersectionArea returns the area shared by a and b. Disjoint or merely
// touching rectangles yield 0.
func IntersectionArea(a, b Rect) float64 {
	dy := math.Min(a.Bottom(), b.Bottom()) - math.Max(a.Top, b.Top)
	if dy <= 0 {
		return 0
	}
	dx := math.Min(a.Right(), b.Right()) - math.Max(a.Left, b.Left)
	if dx <= 0 {
		return 0
	}
	return dx * dy
}

// SquareCenteredOn returns a size×size square sharing r's centre.
func SquareCenteredOn(r Rect, size float64) Rect {
	c := r.Center()
	return Rect{
		Left:   c.X - size/2,
		Top:    c.Y - size/2,
		Width:  size,
		Height: size,
	}
}

// Contains reports whether inner lies entirely within outer. Shared edges
// count as contained.
func Contains(outer, inner Rect) bool {
	return inner.Top >= outer.Top &&
		inner.Right() <= outer.Right() &&
		inner.Bottom() <= outer.Bottom() &&
		inner.Left >= outer.Left
}

// ContainsPoint reports whether p lies within r, edges included.
func ContainsPoint(r Rect, p Point) bool {
	return r.Left <= p.X && p.X <= r.Right() && r.Top <= p.Y && p.Y <= r.Bottom()
}

// TouchOrOverlap reports whether a and b share at least an edge.
func TouchOrOverlap(a, b Rect) bool {
	return a.Left <= b.Right() && b.Left <= a.Right() &&
		a.Top <= b.Bottom() && b.Top <= a.Bottom()
}

// BoundingRect returns the smallest rectangle covering every rect.
// It returns the zero Rect for an empty slice.
func BoundingRect(rects []Rect) Rect {
	if len(rects) == 0 {
		return Rect{}
	}
	left, top := math.Inf(1), math.Inf(1)
	right, bottom := math.Inf(-1), math.Inf(-1)
	for _, r := range rects {
		left = math.Min(left, r.Left)
		top = math.Min(top, r.Top)
		right = math.Max(right, r.Right())
		bottom = math.Max(bottom, r.Bottom())
	}
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Largest returns the rect with the greatest area. Earlier rects win ties.
// ok is false when rects is empty.
func Largest(rects []Rect) (largest Rect, ok bool) {
	for i, r := range rects {
		if i == 0 || r.Area() > largest.Area() {
			largest = r
		}
	}
	return largest, len(rects) > 0
}
