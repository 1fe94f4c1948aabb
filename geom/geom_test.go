package geom

import "testing"

func TestIntersectionArea(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want float64
	}{
		{"overlap", Rect{0, 0, 20, 20}, Rect{15, 15, 20, 20}, 25},
		{"disjoint", Rect{0, 0, 10, 10}, Rect{50, 50, 10, 10}, 0},
		{"touching edge", Rect{0, 0, 10, 10}, Rect{10, 0, 10, 10}, 0},
		{"contained", Rect{0, 0, 100, 100}, Rect{10, 10, 10, 10}, 100},
		{"zero area", Rect{5, 5, 0, 0}, Rect{0, 0, 10, 10}, 0},
		{"both zero", Rect{}, Rect{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IntersectionArea(tt.a, tt.b); got != tt.want {
				t.Errorf("IntersectionArea: got %v, want %v", got, tt.want)
			}
			if got := IntersectionArea(tt.b, tt.a); got != tt.want {
				t.Errorf("IntersectionArea (swapped): got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSquareCenteredOn(t *testing.T) {
	got := SquareCenteredOn(Rect{Left: 0, Top: 0, Width: 20, Height: 20}, 48)
	want := Rect{Left: -14, Top: -14, Width: 48, Height: 48}
	if got != want {
		t.Errorf("SquareCenteredOn: got %+v, want %+v", got, want)
	}
	if got.Center() != (Point{10, 10}) {
		t.Errorf("Center: got %+v, want {10 10}", got.Center())
	}
}

func TestContains(t *testing.T) {
	outer := Rect{0, 0, 100, 100}
	if !Contains(outer, Rect{10, 10, 10, 10}) {
		t.Error("expected inner rect to be contained")
	}
	if !Contains(outer, outer) {
		t.Error("a rect contains itself")
	}
	if Contains(outer, Rect{95, 10, 10, 10}) {
		t.Error("rect crossing the right edge is not contained")
	}
	if Contains(Rect{10, 10, 10, 10}, outer) {
		t.Error("outer is not contained by inner")
	}
}

func TestLargest(t *testing.T) {
	if _, ok := Largest(nil); ok {
		t.Error("Largest(nil): expected ok=false")
	}

	first := Rect{0, 0, 10, 20}
	tie := Rect{50, 50, 20, 10}
	got, ok := Largest([]Rect{{0, 0, 5, 5}, first, tie})
	if !ok {
		t.Fatal("Largest: expected ok=true")
	}
	if got != first {
		t.Errorf("Largest tie: got %+v, want first occurrence %+v", got, first)
	}
}

func TestBoundingRect(t *testing.T) {
	got := BoundingRect([]Rect{{0, 0, 10, 10}, {20, 5, 10, 10}})
	want := Rect{0, 0, 30, 15}
	if got != want {
		t.Errorf("BoundingRect: got %+v, want %+v", got, want)
	}
	if BoundingRect(nil) != (Rect{}) {
		t.Error("BoundingRect(nil): expected zero rect")
	}
}

func TestTappableRegions_DuplicatesCollapse(t *testing.T) {
	r := Rect{0, 0, 30, 10}
	got := TappableRegions([]Rect{r, r, r})
	if len(got) != 1 || got[0] != r {
		t.Errorf("duplicates: got %+v, want [%+v]", got, r)
	}
}

func TestTappableRegions_ContainedDropped(t *testing.T) {
	outer := Rect{0, 0, 100, 40}
	got := TappableRegions([]Rect{{10, 10, 5, 5}, outer})
	if len(got) != 1 || got[0] != outer {
		t.Errorf("contained: got %+v, want [%+v]", got, outer)
	}
}

func TestTappableRegions_WrappedLinesMerge(t *testing.T) {
	// Two line boxes of a wrapped link sharing the left edge.
	line1 := Rect{0, 0, 100, 20}
	line2 := Rect{0, 20, 60, 20}
	got := TappableRegions([]Rect{line1, line2})
	want := Rect{0, 0, 100, 40}
	if len(got) != 1 || got[0] != want {
		t.Errorf("wrapped lines: got %+v, want [%+v]", got, want)
	}
}

func TestTappableRegions_DisjointStaySeparate(t *testing.T) {
	a := Rect{0, 0, 20, 20}
	b := Rect{200, 300, 20, 20}
	got := TappableRegions([]Rect{a, b})
	if len(got) != 2 {
		t.Fatalf("disjoint: got %d regions, want 2", len(got))
	}
}

func TestTappableRegions_MergeRefusedWhenShapeDiffers(t *testing.T) {
	// Thin L-shape: touching and left-aligned, but the bounding box centre
	// lies outside both pieces.
	tall := Rect{0, 0, 2, 100}
	wide := Rect{0, 100, 100, 2}
	got := TappableRegions([]Rect{tall, wide})
	if len(got) != 2 {
		t.Errorf("L-shape: got %+v, want both rects kept", got)
	}
}

func TestTappableRegions_TinyDropped(t *testing.T) {
	got := TappableRegions([]Rect{{0, 0, 1, 30}, {100, 100, 30, 30}})
	if len(got) != 1 || got[0] != (Rect{100, 100, 30, 30}) {
		t.Errorf("tiny: got %+v", got)
	}
}

func TestTappableRegions_Empty(t *testing.T) {
	if got := TappableRegions(nil); len(got) != 0 {
		t.Errorf("empty: got %+v, want none", got)
	}
}

func TestTappableRegions_InputUntouched(t *testing.T) {
	in := []Rect{{0, 0, 100, 20}, {0, 20, 60, 20}}
	TappableRegions(in)
	if in[0] != (Rect{0, 0, 100, 20}) || in[1] != (Rect{0, 20, 60, 20}) {
		t.Errorf("input mutated: %+v", in)
	}
}
