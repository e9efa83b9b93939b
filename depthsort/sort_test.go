package depthsort

import "testing"

func tri(y float32, x0 float32) Primitive {
	return Primitive{
		Kind: KindTriangle,
		Points: [3][3]float32{
			{x0, y, 0},
			{x0 + 1, y, 0},
			{x0, y, 1},
		},
	}
}

func TestSortOrdersFartherTriangleFirst(t *testing.T) {
	near := tri(1, 0)
	far := tri(5, 0)

	order := Sort([]Primitive{near, far})
	if len(order) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(order))
	}
	if order[0] != 1 || order[1] != 0 {
		t.Fatalf("expected far triangle (index 1) drawn before near (index 0), got %v", order)
	}
}

func TestSortNonOverlappingTrianglesKeepInputOrder(t *testing.T) {
	a := tri(1, 0)
	b := tri(1, 100) // far away in screen space, no overlap
	order := Sort([]Primitive{a, b})
	if order[0] != 0 || order[1] != 1 {
		t.Fatalf("expected input order preserved for non-overlapping triangles, got %v", order)
	}
}

func TestSortToleratesCycleAndStaysStable(t *testing.T) {
	// Two coplanar, mutually overlapping triangles: the plane-side test
	// cannot produce a definite order, so both directions are recorded,
	// folding them into one SCC ordered by original position.
	a := tri(2, 0)
	b := tri(2, 0)
	order := Sort([]Primitive{a, b})
	if len(order) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(order))
	}
	if order[0] != 0 || order[1] != 1 {
		t.Fatalf("expected stable input order within the cycle's SCC, got %v", order)
	}
}

func TestSortThreeLevelChain(t *testing.T) {
	a := tri(1, 0)
	b := tri(3, 0)
	c := tri(5, 0)
	order := Sort([]Primitive{a, b, c})
	if len(order) != 3 || order[0] != 2 || order[1] != 1 || order[2] != 0 {
		t.Fatalf("expected farthest-to-nearest order [2,1,0], got %v", order)
	}
}

func TestSortTiltedTrianglesUsePlaneSideOverAverageDepth(t *testing.T) {
	// A tilted wall spanning y in [0,2] (plane z == y). A flat
	// triangle at constant y=0.5 lies entirely on the z < y side of
	// that plane, the side away from the camera (which sits at
	// y -> -infinity), wholly within the wall's screen-space footprint
	// and with a depth interval that overlaps the wall's [0,2] range.
	// Average depth alone would compare the wall's midpoint (~0.67)
	// against the flat triangle's y=0.5 and wrongly call the wall
	// farther; the plane-side test must instead recognize the flat
	// triangle sits entirely on the far side of the wall's plane.
	wall := Primitive{
		Kind:   KindTriangle,
		Points: [3][3]float32{{0, 0, 0}, {2, 0, 0}, {0, 2, 2}},
	}
	far := Primitive{
		Kind:   KindTriangle,
		Points: [3][3]float32{{0.5, 0.5, 0}, {1.5, 0.5, 0}, {0.5, 0.5, 0.3}},
	}

	order := Sort([]Primitive{wall, far})
	if len(order) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(order))
	}
	if order[0] != 1 || order[1] != 0 {
		t.Fatalf("expected the far-side triangle (index 1) drawn before the wall (index 0), got %v", order)
	}
}

func TestSortCoplanarLineDrawnOnTopOfTriangle(t *testing.T) {
	// Line and triangle both lie in the y=1 plane and share the same
	// depth interval: average depth alone can't break the tie, so the
	// coplanar rule must draw the triangle first and the line on top.
	triangle := tri(1, 0)
	line := Primitive{Kind: KindLine, Points: [3][3]float32{{0, 1, 0}, {1, 1, 0}}}

	order := Sort([]Primitive{line, triangle})
	if len(order) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(order))
	}
	if order[0] != 1 || order[1] != 0 {
		t.Fatalf("expected the triangle (index 1) drawn before the coplanar line (index 0), got %v", order)
	}
}

func TestSortLineVersusTriangle(t *testing.T) {
	line := Primitive{Kind: KindLine, Points: [3][3]float32{{0, 5, 0}, {1, 5, 1}}}
	triangle := tri(1, 0)
	order := Sort([]Primitive{line, triangle})
	if order[0] != 0 || order[1] != 1 {
		t.Fatalf("expected the farther line drawn before the nearer triangle, got %v", order)
	}
}

func TestEmptyInput(t *testing.T) {
	if got := Sort(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}
