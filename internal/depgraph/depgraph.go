// Package depgraph models module dependency relationships as a directed
// graph over module paths. The same structure backs both the declared
// graph (edges from configuration) and the observed graph (edges from
// scanned imports).
package depgraph

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Graph is a directed graph whose nodes are module paths. String paths
// are interned to integer IDs; all traversal runs on the adjacency
// representation.
type Graph struct {
	symbols *symbolTable
	edges   *intGraph
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		symbols: newSymbolTable(),
		edges:   newIntGraph(),
	}
}

// Copy clones the graph and returns the independent copy.
func (g *Graph) Copy() *Graph {
	clone := New()

	g.symbols.lock.RLock()
	for k, v := range g.symbols.strToID {
		clone.symbols.strToID[k] = v
	}
	clone.symbols.idToStr = make([]string, len(g.symbols.idToStr))
	copy(clone.symbols.idToStr, g.symbols.idToStr)
	g.symbols.lock.RUnlock()

	clone.edges.EnsureCapacity(len(g.edges.nodes))
	for u, neighbors := range g.edges.nodes {
		if neighbors != nil {
			clone.edges.nodes[u] = make([]int, len(neighbors))
			copy(clone.edges.nodes[u], neighbors)
		}
	}
	clone.edges.inDegree = make([]int, len(g.edges.inDegree))
	copy(clone.edges.inDegree, g.edges.inDegree)

	return clone
}

// AddNode inserts a node. Returns false when the path is already present.
func (g *Graph) AddNode(path string) bool {
	if _, exists := g.symbols.Lookup(path); exists {
		return false
	}

	id := g.symbols.Intern(path)

	return g.edges.AddNode(id)
}

// AddEdge inserts the edge from -> to, creating either node as needed.
// Returns false when the edge is already present.
func (g *Graph) AddEdge(from, to string) bool {
	u := g.symbols.Intern(from)
	v := g.symbols.Intern(to)

	g.edges.AddNode(u)
	g.edges.AddNode(v)

	return g.edges.AddEdge(u, v)
}

// RemoveEdge deletes the edge from -> to. Returns false when either node
// or the edge does not exist.
func (g *Graph) RemoveEdge(from, to string) bool {
	u, ok1 := g.symbols.Lookup(from)
	v, ok2 := g.symbols.Lookup(to)

	if !ok1 || !ok2 {
		return false
	}

	return g.edges.RemoveEdge(u, v)
}

// HasNode reports whether path is a node of the graph.
func (g *Graph) HasNode(path string) bool {
	_, exists := g.symbols.Lookup(path)

	return exists
}

// HasEdge reports whether the edge from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	u, ok1 := g.symbols.Lookup(from)
	v, ok2 := g.symbols.Lookup(to)

	if !ok1 || !ok2 {
		return false
	}

	return g.edges.HasEdge(u, v)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return g.symbols.Len()
}

// Nodes returns all node paths in lexicographical order.
func (g *Graph) Nodes() []string {
	g.symbols.lock.RLock()
	nodes := make([]string, len(g.symbols.idToStr))
	copy(nodes, g.symbols.idToStr)
	g.symbols.lock.RUnlock()

	sort.Strings(nodes)

	return nodes
}

// Children returns the targets of outgoing edges of from, sorted.
func (g *Graph) Children(from string) []string {
	u, exists := g.symbols.Lookup(from)
	if !exists || u >= len(g.edges.nodes) {
		return []string{}
	}

	children := make([]string, len(g.edges.nodes[u]))
	for i, v := range g.edges.nodes[u] {
		children[i] = g.symbols.Resolve(v)
	}

	sort.Strings(children)

	return children
}

// Parents returns the sources of incoming edges of to, sorted.
func (g *Graph) Parents(to string) []string {
	targetID, exists := g.symbols.Lookup(to)
	if !exists {
		return []string{}
	}

	parents := []string{}

	for u, children := range g.edges.nodes {
		for _, v := range children {
			if v == targetID {
				parents = append(parents, g.symbols.Resolve(u))

				break
			}
		}
	}

	sort.Strings(parents)

	return parents
}

// Toposort orders the nodes so every edge points forward. The second
// return is false when a cycle makes a complete ordering impossible.
func (g *Graph) Toposort() ([]string, bool) {
	ids, ok := g.edges.TopoSort()

	result := make([]string, len(ids))
	for i, id := range ids {
		result[i] = g.symbols.Resolve(id)
	}

	return result, ok
}

// FindCycle returns a cycle through seed as an open path (the closing
// hop back to the first element is implied), or an empty slice when
// seed lies on no cycle.
func (g *Graph) FindCycle(seed string) []string {
	id, exists := g.symbols.Lookup(seed)
	if !exists {
		return []string{}
	}

	cycleIDs := g.edges.FindCycle(id)

	if len(cycleIDs) > 1 && cycleIDs[0] == cycleIDs[len(cycleIDs)-1] {
		cycleIDs = cycleIDs[:len(cycleIDs)-1]
	}

	result := make([]string, len(cycleIDs))
	for i, cid := range cycleIDs {
		result[i] = g.symbols.Resolve(cid)
	}

	return result
}

// Cycles returns every distinct cycle in the graph, each rotated so its
// lexicographically smallest node comes first, ordered by that node.
func (g *Graph) Cycles() [][]string {
	seen := map[string][]string{}

	for _, node := range g.Nodes() {
		cycle := g.FindCycle(node)
		if len(cycle) == 0 {
			continue
		}

		canonical := rotateMinFirst(cycle)
		seen[strings.Join(canonical, "\x00")] = canonical
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cycles := make([][]string, len(keys))
	for i, k := range keys {
		cycles[i] = seen[k]
	}

	return cycles
}

// DOT renders the graph in Graphviz format. Nodes are emitted before
// edges so isolated modules still appear.
func (g *Graph) DOT(name string) string {
	var buffer bytes.Buffer

	fmt.Fprintf(&buffer, "digraph %q {\n", name)
	buffer.WriteString("  rankdir=LR;\n")

	for _, node := range g.Nodes() {
		fmt.Fprintf(&buffer, "  %q;\n", node)
	}

	for _, from := range g.Nodes() {
		for _, to := range g.Children(from) {
			fmt.Fprintf(&buffer, "  %q -> %q;\n", from, to)
		}
	}

	buffer.WriteString("}\n")

	return buffer.String()
}

// rotateMinFirst rotates cycle so its smallest element leads. The input
// is not modified.
func rotateMinFirst(cycle []string) []string {
	minIdx := 0
	for i, node := range cycle {
		if node < cycle[minIdx] {
			minIdx = i
		}
	}

	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, cycle[minIdx:]...)
	rotated = append(rotated, cycle[:minIdx]...)

	return rotated
}
