package depthsort

// Sort computes a draw order for prims: a permutation of
// [0, len(prims)) — positions into the prims slice itself — such that,
// wherever the pairwise geometric predicates can tell two primitives
// apart, the farther one is drawn first. Cycles (mutually intersecting
// or coplanar primitives) are tolerated by condensing their strongly
// connected component and ordering its members by their original
// position in prims.
//
// Sort does not reorder prims itself, since callers typically want to
// apply the same order to several parallel buffers (position, color,
// normal, ...).
func Sort(prims []Primitive) []int {
	if len(prims) == 0 {
		return nil
	}

	g := buildGraph(prims)
	comp := tarjanSCC(g)

	numComponents := 0
	for _, c := range comp {
		if c+1 > numComponents {
			numComponents = c + 1
		}
	}

	condensedGraph := condense(g, comp, numComponents)
	return kahnOrder(condensedGraph)
}
