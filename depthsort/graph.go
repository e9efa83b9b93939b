package depthsort

// graph is a directed "draw-before" adjacency list over primitive
// indices: an edge u -> v means u must be drawn before v (u is behind
// v, or their order is otherwise ambiguous and a stable placeholder
// edge was recorded so Tarjan folds them into one component).
type graph struct {
	n     int
	edges [][]int
}

func newGraph(n int) *graph {
	return &graph{n: n, edges: make([][]int, n)}
}

func (g *graph) addEdge(u, v int) {
	if u == v {
		return
	}
	g.edges[u] = append(g.edges[u], v)
}

// buildGraph evaluates every pair of primitives and records a
// draw-before edge wherever the pair's screen-space projections
// overlap: by depth interval when those are disjoint, otherwise by the
// plane-side predicates in order. Pairs whose projections are disjoint
// need no ordering constraint between them at all.
func buildGraph(prims []Primitive) *graph {
	g := newGraph(len(prims))

	boxes := make([]aabb, len(prims))
	for i, p := range prims {
		boxes[i] = p.aabb()
	}

	for i := 0; i < len(prims); i++ {
		for j := i + 1; j < len(prims); j++ {
			a, b := prims[i], prims[j]
			if boxes[i].screenDisjoint(boxes[j]) {
				continue
			}
			if !screenOverlap(a, b) {
				continue
			}

			if boxes[i].depthDisjoint(boxes[j]) {
				// Screen footprints overlap but depth extents don't:
				// the order is certain by depth interval alone, no
				// plane-side test needed.
				if averageDepth(a) > averageDepth(b) {
					g.addEdge(i, j)
				} else {
					g.addEdge(j, i)
				}
				continue
			}

			before, ok := order(a, b)
			if !ok {
				// Ambiguous (coplanar or mutually intersecting):
				// record both directions so Tarjan condenses this
				// pair into a single strongly connected component,
				// which Kahn's sort then orders by input index.
				g.addEdge(i, j)
				g.addEdge(j, i)
				continue
			}
			if before {
				g.addEdge(i, j)
			} else {
				g.addEdge(j, i)
			}
		}
	}

	return g
}

func screenOverlap(a, b Primitive) bool {
	switch {
	case a.Kind == KindTriangle && b.Kind == KindTriangle:
		return triangles2DOverlap(
			[3][2]float32{xz(a.Points[0]), xz(a.Points[1]), xz(a.Points[2])},
			[3][2]float32{xz(b.Points[0]), xz(b.Points[1]), xz(b.Points[2])},
		)
	case a.Kind == KindTriangle && b.Kind == KindLine:
		return segmentOverlapsTriangle2D(xz(b.Points[0]), xz(b.Points[1]), xz(a.Points[0]), xz(a.Points[1]), xz(a.Points[2]))
	case a.Kind == KindLine && b.Kind == KindTriangle:
		return segmentOverlapsTriangle2D(xz(a.Points[0]), xz(a.Points[1]), xz(b.Points[0]), xz(b.Points[1]), xz(b.Points[2]))
	default: // both lines
		return segmentsOverlap2D(xz(a.Points[0]), xz(a.Points[1]), xz(b.Points[0]), xz(b.Points[1]))
	}
}

// cameraSide reports which side of pl the camera sits on along the
// render-space depth axis (see averageDepth): since larger Y is
// farther from the camera, the camera sits at Y -> -infinity, so its
// side is whichever side the plane's distance tends to as Y decreases
// without bound, i.e. the opposite sign of the plane normal's Y
// component. Returns 0 when the normal has no Y component, meaning
// the plane runs parallel to the view direction and never separates
// near from far.
func cameraSide(pl plane) int {
	switch {
	case pl.normal[1] > Epsilon:
		return -1
	case pl.normal[1] < -Epsilon:
		return 1
	default:
		return 0
	}
}

// isCoplanar reports whether every point in pts lies within Epsilon of
// pl, as opposed to side's looser "all on one side, or straddling"
// classification.
func isCoplanar(pl plane, pts [][3]float32) bool {
	for _, p := range pts {
		d := pl.signedDistance(p)
		if d > Epsilon || d < -Epsilon {
			return false
		}
	}
	return true
}

// order determines whether a must be drawn before b. ok is false when
// the geometric predicates cannot produce a definite answer (coplanar
// or mutually-intersecting triangles), in which case the caller records
// edges in both directions so the pair falls into one strongly
// connected component and is ordered by input index.
func order(a, b Primitive) (before bool, ok bool) {
	switch {
	case a.Kind == KindTriangle && b.Kind == KindTriangle:
		pa := planeOf(a.Points)
		pb := planeOf(b.Points)

		sideBRelA := side(pa, [][3]float32{b.Points[0], b.Points[1], b.Points[2]})
		sideARelB := side(pb, [][3]float32{a.Points[0], a.Points[1], a.Points[2]})

		// All of b lies to one side of a's plane: if that's the
		// camera's side, b sits entirely closer than a's plane, so a
		// must be drawn first.
		if camA := cameraSide(pa); sideBRelA != 0 && camA != 0 {
			return sideBRelA == camA, true
		}
		// All of a lies to one side of b's plane: if that's NOT the
		// camera's side, a sits entirely farther than b's plane, so a
		// must be drawn first.
		if camB := cameraSide(pb); sideARelB != 0 && camB != 0 {
			return sideARelB != camB, true
		}
		if sideBRelA == 0 && sideARelB == 0 {
			return false, false
		}

	case a.Kind == KindLine && b.Kind == KindTriangle:
		if isCoplanar(planeOf(b.Points), [][3]float32{a.Points[0], a.Points[1]}) {
			// A line coplanar with the triangle it overlaps is always
			// drawn on top of it, regardless of average depth.
			return false, true
		}

	case a.Kind == KindTriangle && b.Kind == KindLine:
		if isCoplanar(planeOf(a.Points), [][3]float32{b.Points[0], b.Points[1]}) {
			return true, true
		}
	}

	// Depth axis is render Y (see primitive.go / flatten.remap); larger
	// Y means farther from the camera and must be drawn first.
	return averageDepth(a) > averageDepth(b), true
}

func averageDepth(p Primitive) float32 {
	n := float32(3)
	if p.Kind == KindLine {
		n = 2
	}
	var sum float32
	for i := 0; i < int(n); i++ {
		sum += p.Points[i][1]
	}
	return sum / n
}
