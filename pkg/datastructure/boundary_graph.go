package datastructure

import "sort"

// BoundaryGraph is the per-partition view holding exactly the vertices of one color that have a
// neighbour of a different color. It stores ids only, the vertices stay owned by the parent graph.
type BoundaryGraph struct {
	color   int
	graph   *PartitionGraph
	members map[Index]struct{}
}

func NewBoundaryGraph(graph *PartitionGraph, color int) *BoundaryGraph {
	return &BoundaryGraph{
		color:   color,
		graph:   graph,
		members: make(map[Index]struct{}),
	}
}

func (b *BoundaryGraph) GetColor() int {
	return b.color
}

// Build fills the boundary from scratch. Only used right after the initial cut.
func (b *BoundaryGraph) Build() {
	b.members = make(map[Index]struct{})
	for _, u := range b.graph.VerticesByColor(b.color) {
		if b.graph.IsBoundary(u) {
			b.members[u] = struct{}{}
		}
	}
}

func (b *BoundaryGraph) Contains(u Index) bool {
	_, ok := b.members[u]
	return ok
}

func (b *BoundaryGraph) NumberOfVertices() int {
	return len(b.members)
}

func (b *BoundaryGraph) GetVertexIDs() []Index {
	ids := make([]Index, 0, len(b.members))
	for u := range b.members {
		ids = append(ids, u)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (b *BoundaryGraph) add(u Index) {
	b.members[u] = struct{}{}
}

func (b *BoundaryGraph) remove(u Index) {
	delete(b.members, u)
}

// RefreshBoundaries updates boundary membership after vertex u changed color from oldColor.
// Only u and its neighbours are revisited.
func (g *PartitionGraph) RefreshBoundaries(boundaries map[int]*BoundaryGraph, u Index, oldColor int) {
	if b, ok := boundaries[oldColor]; ok {
		b.remove(u)
	}
	v, ok := g.vertices[u]
	if !ok {
		return
	}
	g.refreshMembership(boundaries, u)
	for w := range v.adjacency {
		g.refreshMembership(boundaries, w)
	}
}

func (g *PartitionGraph) refreshMembership(boundaries map[int]*BoundaryGraph, u Index) {
	b, ok := boundaries[g.vertices[u].color]
	if !ok {
		return
	}
	if g.IsBoundary(u) {
		b.add(u)
	} else {
		b.remove(u)
	}
}
