package main

import "sort"

// Doorway is a passable opening between two adjacent cells of different groups.
// A is always the lexicographically smaller coordinate.
type Doorway struct {
	A CellCoord `json:"a" msgpack:"a"`
	B CellCoord `json:"b" msgpack:"b"`
}

func makeEdge(a, b CellCoord) Doorway {
	if b.Less(a) {
		a, b = b, a
	}
	return Doorway{A: a, B: b}
}

// EdgeKind describes what separates two cells
type EdgeKind int

const (
	EdgeNone    EdgeKind = iota // not adjacent, or a cell is missing (exterior wall)
	EdgeOpen                    // same merge group, no wall
	EdgeDoorway                 // different groups, carved opening
	EdgeWall                    // different groups, solid
)

// computeDoorways selects a minimum spanning tree over the merge-group graph.
// Edges are the adjacent cell pairs whose groups differ, ordered by (A, B).
// Because that order is total, Kruskal yields the unique minimum tree, which
// is also the tree Prim would grow from the spawn group.
func (g *WorldGrid) computeDoorways() {
	var edges []Doorway
	for _, c := range g.SortedCells() {
		cell := g.cells[c]
		// +Z sorts before +X for the same origin
		for _, n := range [2]CellCoord{{c.X, c.Z + 1}, {c.X + 1, c.Z}} {
			other, ok := g.cells[n]
			if !ok || other.Group == cell.Group {
				continue
			}
			edges = append(edges, Doorway{A: c, B: n})
		}
	}
	sortEdges(edges)

	uf := newUnionFind()
	g.doorways = g.doorways[:0]
	g.doorSet = make(map[Doorway]bool, len(edges))
	for _, e := range edges {
		if uf.union(g.cells[e.A].Group, g.cells[e.B].Group) {
			g.doorways = append(g.doorways, e)
			g.doorSet[e] = true
		}
	}
}

// Doorways returns the carved openings in (A, B) order
func (g *WorldGrid) Doorways() []Doorway {
	out := make([]Doorway, len(g.doorways))
	copy(out, g.doorways)
	return out
}

// Edge classifies the boundary between two cells
func (g *WorldGrid) Edge(a, b CellCoord) EdgeKind {
	if abs(a.X-b.X)+abs(a.Z-b.Z) != 1 {
		return EdgeNone
	}
	ca, okA := g.cells[a]
	cb, okB := g.cells[b]
	if !okA || !okB {
		return EdgeNone
	}
	if ca.Group == cb.Group {
		return EdgeOpen
	}
	if g.doorSet[makeEdge(a, b)] {
		return EdgeDoorway
	}
	return EdgeWall
}

// Reachable returns every cell reachable from spawn through open edges and doorways
func (g *WorldGrid) Reachable() map[CellCoord]bool {
	start := SpawnCell()
	seen := map[CellCoord]bool{}
	if _, ok := g.cells[start]; !ok {
		return seen
	}
	seen[start] = true
	queue := []CellCoord{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, n := range c.neighbors() {
			if seen[n] {
				continue
			}
			if k := g.Edge(c, n); k == EdgeOpen || k == EdgeDoorway {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return seen
}

func sortEdges(es []Doorway) {
	sort.Slice(es, func(i, j int) bool { return edgeLess(es[i], es[j]) })
}

func edgeLess(a, b Doorway) bool {
	if a.A != b.A {
		return a.A.Less(b.A)
	}
	return a.B.Less(b.B)
}

type unionFind struct {
	parent map[int]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[int]int)}
}

func (u *unionFind) find(x int) int {
	p, ok := u.parent[x]
	if !ok {
		u.parent[x] = x
		return x
	}
	if p != x {
		p = u.find(p)
		u.parent[x] = p
	}
	return p
}

// union merges the sets of a and b and reports whether they were separate
func (u *unionFind) union(a, b int) bool {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return false
	}
	u.parent[rb] = ra
	return true
}
