package depthsort

// xz projects a render-space point onto the screen plane: render X and
// render Z (the remapped LDraw Y, vertical). Render Y is the camera's
// depth axis and is deliberately dropped here; overlap in screen space
// is necessary but not sufficient for occlusion, which is why
// triangles2DOverlap is always paired with a depthDisjoint / plane-side
// test before an edge is added to the occlusion graph.
func xz(p [3]float32) [2]float32 { return [2]float32{p[0], p[2]} }

// edgeSign returns twice the signed area of triangle (a,b,c): positive
// if c is left of the directed line a->b, negative if right, zero if
// collinear.
func edgeSign(a, b, c [2]float32) float32 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// pointInOrOnTriangle2D reports whether p lies inside or on triangle
// (a,b,c), regardless of the triangle's winding order.
func pointInOrOnTriangle2D(p, a, b, c [2]float32) bool {
	d1 := edgeSign(a, b, p)
	d2 := edgeSign(b, c, p)
	d3 := edgeSign(c, a, p)

	hasNeg := d1 < -Epsilon || d2 < -Epsilon || d3 < -Epsilon
	hasPos := d1 > Epsilon || d2 > Epsilon || d3 > Epsilon

	return !(hasNeg && hasPos)
}

func segmentsIntersect2D(p1, p2, p3, p4 [2]float32) bool {
	d1 := edgeSign(p3, p4, p1)
	d2 := edgeSign(p3, p4, p2)
	d3 := edgeSign(p1, p2, p3)
	d4 := edgeSign(p1, p2, p4)

	if ((d1 > Epsilon && d2 < -Epsilon) || (d1 < -Epsilon && d2 > Epsilon)) &&
		((d3 > Epsilon && d4 < -Epsilon) || (d3 < -Epsilon && d4 > Epsilon)) {
		return true
	}
	return false
}

// triangles2DOverlap implements a Moller-style triangle/triangle
// overlap test in 2D (screen-space projection): two triangles overlap
// if any vertex of one lies inside the other, or any pair of their
// edges cross.
func triangles2DOverlap(t1, t2 [3][2]float32) bool {
	for _, v := range t1 {
		if pointInOrOnTriangle2D(v, t2[0], t2[1], t2[2]) {
			return true
		}
	}
	for _, v := range t2 {
		if pointInOrOnTriangle2D(v, t1[0], t1[1], t1[2]) {
			return true
		}
	}
	for i := 0; i < 3; i++ {
		a1, b1 := t1[i], t1[(i+1)%3]
		for j := 0; j < 3; j++ {
			a2, b2 := t2[j], t2[(j+1)%3]
			if segmentsIntersect2D(a1, b1, a2, b2) {
				return true
			}
		}
	}
	return false
}

// segmentOverlapsTriangle2D reports whether line segment (p1,p2)
// crosses or touches triangle (a,b,c) in screen space.
func segmentOverlapsTriangle2D(p1, p2, a, b, c [2]float32) bool {
	if pointInOrOnTriangle2D(p1, a, b, c) || pointInOrOnTriangle2D(p2, a, b, c) {
		return true
	}
	edges := [3][2][2]float32{{a, b}, {b, c}, {c, a}}
	for _, e := range edges {
		if segmentsIntersect2D(p1, p2, e[0], e[1]) {
			return true
		}
	}
	return false
}

func segmentsOverlap2D(p1, p2, p3, p4 [2]float32) bool {
	if segmentsIntersect2D(p1, p2, p3, p4) {
		return true
	}
	// Degenerate/collinear touching cases: treat an endpoint landing on
	// the other segment as an overlap too.
	return pointOnSegment2D(p1, p3, p4) || pointOnSegment2D(p2, p3, p4) ||
		pointOnSegment2D(p3, p1, p2) || pointOnSegment2D(p4, p1, p2)
}

func pointOnSegment2D(p, a, b [2]float32) bool {
	cross := edgeSign(a, b, p)
	if cross > Epsilon || cross < -Epsilon {
		return false
	}
	minX, maxX := a[0], b[0]
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := a[1], b[1]
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return p[0] >= minX-Epsilon && p[0] <= maxX+Epsilon && p[1] >= minY-Epsilon && p[1] <= maxY+Epsilon
}

// plane is the plane containing a triangle, in implicit form
// normal . point + d == 0.
type plane struct {
	normal [3]float32
	d      float32
}

func planeOf(t [3][3]float32) plane {
	ux := t[1][0] - t[0][0]
	uy := t[1][1] - t[0][1]
	uz := t[1][2] - t[0][2]
	vx := t[2][0] - t[0][0]
	vy := t[2][1] - t[0][1]
	vz := t[2][2] - t[0][2]

	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx

	n := [3]float32{nx, ny, nz}
	d := -(nx*t[0][0] + ny*t[0][1] + nz*t[0][2])
	return plane{normal: n, d: d}
}

func (pl plane) signedDistance(p [3]float32) float32 {
	return pl.normal[0]*p[0] + pl.normal[1]*p[1] + pl.normal[2]*p[2] + pl.d
}

// side classifies every point of pts against pl: -1 if all strictly
// behind (negative side), +1 if all strictly in front, 0 if pts
// straddle the plane or lie on it within Epsilon.
func side(pl plane, pts [][3]float32) int {
	sawPos, sawNeg := false, false
	for _, p := range pts {
		d := pl.signedDistance(p)
		if d > Epsilon {
			sawPos = true
		} else if d < -Epsilon {
			sawNeg = true
		}
	}
	switch {
	case sawPos && !sawNeg:
		return 1
	case sawNeg && !sawPos:
		return -1
	default:
		return 0
	}
}
