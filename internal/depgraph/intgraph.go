package depgraph

import "sort"

// intGraph is the adjacency representation over integer node IDs. IDs are
// dense: every index below len(nodes) is a live node.
type intGraph struct {
	// nodes[u] lists v for every edge u -> v, in insertion order.
	nodes [][]int
	// inDegree[v] counts incoming edges of v.
	inDegree []int
}

func newIntGraph() *intGraph {
	return &intGraph{
		nodes:    make([][]int, 0),
		inDegree: make([]int, 0),
	}
}

// EnsureCapacity grows the graph to hold at least n nodes.
func (g *intGraph) EnsureCapacity(n int) {
	if n <= len(g.nodes) {
		return
	}

	newNodes := make([][]int, n)
	copy(newNodes, g.nodes)
	g.nodes = newNodes

	newInDegree := make([]int, n)
	copy(newInDegree, g.inDegree)
	g.inDegree = newInDegree
}

// AddNode makes the given ID addressable. Returns true when the ID was
// not tracked before.
func (g *intGraph) AddNode(id int) bool {
	if id < len(g.nodes) {
		return false
	}

	g.EnsureCapacity(id + 1)

	return true
}

// AddEdge inserts the edge u -> v. Returns false when the edge already
// exists.
func (g *intGraph) AddEdge(u, v int) bool {
	g.EnsureCapacity(max(u, v) + 1)

	for _, neighbor := range g.nodes[u] {
		if neighbor == v {
			return false
		}
	}

	g.nodes[u] = append(g.nodes[u], v)
	g.inDegree[v]++

	return true
}

// RemoveEdge deletes the edge u -> v. Returns false when no such edge
// exists.
func (g *intGraph) RemoveEdge(u, v int) bool {
	if u >= len(g.nodes) || v >= len(g.nodes) {
		return false
	}

	for i, neighbor := range g.nodes[u] {
		if neighbor == v {
			g.nodes[u] = append(g.nodes[u][:i], g.nodes[u][i+1:]...)
			g.inDegree[v]--

			return true
		}
	}

	return false
}

// HasEdge reports whether the edge u -> v exists.
func (g *intGraph) HasEdge(u, v int) bool {
	if u >= len(g.nodes) {
		return false
	}

	for _, neighbor := range g.nodes[u] {
		if neighbor == v {
			return true
		}
	}

	return false
}

// TopoSort orders the nodes with Kahn's algorithm. The second return is
// false when a cycle prevents a complete ordering. The ready queue is
// kept sorted so the output is deterministic.
func (g *intGraph) TopoSort() ([]int, bool) {
	n := len(g.nodes)
	if n == 0 {
		return []int{}, true
	}

	inDegree := make([]int, n)
	copy(inDegree, g.inDegree)

	queue := make([]int, 0)

	for i := range n {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	sort.Ints(queue)

	result := make([]int, 0, n)

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		result = append(result, u)

		for _, v := range g.nodes[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				insertSorted(&queue, v)
			}
		}
	}

	if len(result) != n {
		return result, false
	}

	return result, true
}

// FindCycle returns a shortest cycle through start as a closed path
// (start ... start), or an empty slice when start lies on no cycle.
func (g *intGraph) FindCycle(start int) []int {
	if start >= len(g.nodes) {
		return []int{}
	}

	// BFS from start; the first edge back into start closes the
	// shortest cycle through it.
	parent := map[int]int{start: -1}
	queue := []int{start}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		for _, v := range g.nodes[u] {
			if v == start {
				cycle := []int{start}
				for curr := u; curr != start && curr != -1; curr = parent[curr] {
					cycle = append(cycle, curr)
				}
				cycle = append(cycle, start)

				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}

				return cycle
			}

			if _, visited := parent[v]; !visited {
				parent[v] = u
				queue = append(queue, v)
			}
		}
	}

	return []int{}
}

// insertSorted inserts v into the sorted slice s.
func insertSorted(s *[]int, v int) {
	i := sort.SearchInts(*s, v)
	*s = append(*s, 0)
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = v
}
