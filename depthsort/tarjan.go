package depthsort

// tarjanSCC computes the strongly connected components of g using
// Tarjan's algorithm, returning each node's component id. Component
// ids are assigned in reverse topological order of discovery (a
// standard property of Tarjan's algorithm): if there is an edge from a
// node in component i to a node in a different component j, then
// i > j. kahn.go still performs an explicit topological sort over the
// condensed component graph rather than relying on that order, so that
// among the components ready to emit it can pick the one with the
// smallest input index.
type tarjanState struct {
	g        *graph
	index    []int
	lowlink  []int
	onStack  []bool
	stack    []int
	nextIdx  int
	comp     []int
	nextComp int
}

func tarjanSCC(g *graph) []int {
	st := &tarjanState{
		g:       g,
		index:   make([]int, g.n),
		lowlink: make([]int, g.n),
		onStack: make([]bool, g.n),
		comp:    make([]int, g.n),
	}
	for i := range st.index {
		st.index[i] = -1
	}

	for v := 0; v < g.n; v++ {
		if st.index[v] == -1 {
			st.strongConnect(v)
		}
	}

	return st.comp
}

func (st *tarjanState) strongConnect(v int) {
	st.index[v] = st.nextIdx
	st.lowlink[v] = st.nextIdx
	st.nextIdx++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, w := range st.g.edges[v] {
		if st.index[w] == -1 {
			st.strongConnect(w)
			if st.lowlink[w] < st.lowlink[v] {
				st.lowlink[v] = st.lowlink[w]
			}
		} else if st.onStack[w] {
			if st.index[w] < st.lowlink[v] {
				st.lowlink[v] = st.index[w]
			}
		}
	}

	if st.lowlink[v] == st.index[v] {
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			st.comp[w] = st.nextComp
			if w == v {
				break
			}
		}
		st.nextComp++
	}
}
