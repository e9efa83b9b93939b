package depthsort

import "sort"

// condensed is the component graph produced by collapsing each
// strongly connected component of the primitive graph into a single
// node.
type condensed struct {
	members  [][]int // original primitive indices per component, ascending
	edges    [][]int // deduplicated component adjacency
	inDegree []int
}

func condense(g *graph, comp []int, numComponents int) *condensed {
	c := &condensed{
		members:  make([][]int, numComponents),
		edges:    make([][]int, numComponents),
		inDegree: make([]int, numComponents),
	}

	for v := 0; v < g.n; v++ {
		c.members[comp[v]] = append(c.members[comp[v]], v)
	}
	for i := range c.members {
		sort.Ints(c.members[i])
	}

	seen := make([]map[int]bool, numComponents)
	for i := range seen {
		seen[i] = make(map[int]bool)
	}

	for u := 0; u < g.n; u++ {
		cu := comp[u]
		for _, v := range g.edges[u] {
			cv := comp[v]
			if cu == cv || seen[cu][cv] {
				continue
			}
			seen[cu][cv] = true
			c.edges[cu] = append(c.edges[cu], cv)
			c.inDegree[cv]++
		}
	}

	return c
}

// kahnOrder performs Kahn's topological sort over the condensed
// component graph. Among components currently available (in-degree 0),
// the one whose smallest member index is lowest is always chosen next,
// so the final primitive order is deterministic and, wherever the
// occlusion graph leaves components unconstrained relative to each
// other, matches the caller's original input order.
func kahnOrder(c *condensed) []int {
	inDegree := append([]int(nil), c.inDegree...)
	done := make([]bool, len(c.members))

	order := make([]int, 0, len(c.members))

	for processed := 0; processed < len(c.members); processed++ {
		best := -1
		for comp := 0; comp < len(c.members); comp++ {
			if done[comp] || inDegree[comp] != 0 {
				continue
			}
			if best == -1 || c.members[comp][0] < c.members[best][0] {
				best = comp
			}
		}
		// best == -1 only if every remaining component has a positive
		// in-degree, which cannot happen in a DAG of components: Tarjan
		// guarantees the condensed graph is acyclic.
		done[best] = true
		order = append(order, c.members[best]...)
		for _, v := range c.edges[best] {
			inDegree[v]--
		}
	}

	return order
}
