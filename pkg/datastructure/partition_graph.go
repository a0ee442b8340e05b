package datastructure

import (
	"fmt"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
)

type Index uint32

// PartitionVertex is one vertex of a partition graph. referenceId is the externally stable id
// (element tag, node tag or partition id) used to correlate vertices of independently built graphs.
type PartitionVertex struct {
	id          Index
	referenceId int
	weight      float64
	color       int
	centroid    r3.Vector
	adjacency   map[Index]struct{}
}

func NewPartitionVertex(id Index, referenceId int, weight float64, color int) *PartitionVertex {
	return &PartitionVertex{
		id:          id,
		referenceId: referenceId,
		weight:      weight,
		color:       color,
		adjacency:   make(map[Index]struct{}),
	}
}

func (v *PartitionVertex) GetID() Index {
	return v.id
}

func (v *PartitionVertex) GetReferenceID() int {
	return v.referenceId
}

func (v *PartitionVertex) GetWeight() float64 {
	return v.weight
}

func (v *PartitionVertex) SetWeight(weight float64) {
	v.weight = weight
}

func (v *PartitionVertex) AddWeight(delta float64) {
	v.weight += delta
}

func (v *PartitionVertex) GetColor() int {
	return v.color
}

func (v *PartitionVertex) SetColor(color int) {
	v.color = color
}

func (v *PartitionVertex) GetCentroid() r3.Vector {
	return v.centroid
}

func (v *PartitionVertex) SetCentroid(c r3.Vector) {
	v.centroid = c
}

func (v *PartitionVertex) GetDegree() int {
	return len(v.adjacency)
}

func (v *PartitionVertex) HasNeighbor(u Index) bool {
	_, ok := v.adjacency[u]
	return ok
}

// GetAdjacency returns the neighbour ids in ascending order.
func (v *PartitionVertex) GetAdjacency() []Index {
	adj := make([]Index, 0, len(v.adjacency))
	for u := range v.adjacency {
		adj = append(adj, u)
	}
	sort.Slice(adj, func(i, j int) bool { return adj[i] < adj[j] })
	return adj
}

func (v *PartitionVertex) ForEachNeighbor(handle func(u Index)) {
	for _, u := range v.GetAdjacency() {
		handle(u)
	}
}

// PartitionGraph is an undirected graph with set adjacency. Adjacency is always symmetric.
type PartitionGraph struct {
	vertices map[Index]*PartitionVertex
	numEdges int
}

func NewPartitionGraph() *PartitionGraph {
	return &PartitionGraph{
		vertices: make(map[Index]*PartitionVertex),
	}
}

func (g *PartitionGraph) NumberOfVertices() int {
	return len(g.vertices)
}

func (g *PartitionGraph) NumberOfEdges() int {
	return g.numEdges
}

func (g *PartitionGraph) AddVertex(v *PartitionVertex) error {
	if _, ok := g.vertices[v.id]; ok {
		return fmt.Errorf("vertex %d already exists", v.id)
	}
	if v.adjacency == nil {
		v.adjacency = make(map[Index]struct{})
	}
	g.vertices[v.id] = v
	return nil
}

// RemoveVertex deletes the vertex and every edge incident to it.
func (g *PartitionGraph) RemoveVertex(u Index) error {
	v, ok := g.vertices[u]
	if !ok {
		return fmt.Errorf("remove vertex %d: %w", u, pkg.ErrUnknownVertex)
	}
	for w := range v.adjacency {
		delete(g.vertices[w].adjacency, u)
		g.numEdges--
	}
	delete(g.vertices, u)
	return nil
}

func (g *PartitionGraph) GetVertex(u Index) (*PartitionVertex, error) {
	v, ok := g.vertices[u]
	if !ok {
		return nil, fmt.Errorf("vertex %d: %w", u, pkg.ErrUnknownVertex)
	}
	return v, nil
}

func (g *PartitionGraph) HasVertex(u Index) bool {
	_, ok := g.vertices[u]
	return ok
}

// AddEdge adds u to the adjacency of v and v to the adjacency of u. Self loops are ignored.
func (g *PartitionGraph) AddEdge(u, v Index) error {
	vu, ok := g.vertices[u]
	if !ok {
		return fmt.Errorf("add edge (%d,%d): %w", u, v, pkg.ErrUnknownVertex)
	}
	vv, ok := g.vertices[v]
	if !ok {
		return fmt.Errorf("add edge (%d,%d): %w", u, v, pkg.ErrUnknownVertex)
	}
	if u == v || vu.HasNeighbor(v) {
		return nil
	}
	vu.adjacency[v] = struct{}{}
	vv.adjacency[u] = struct{}{}
	g.numEdges++
	return nil
}

// GetVertexIDs returns every vertex id in ascending order.
func (g *PartitionGraph) GetVertexIDs() []Index {
	ids := make([]Index, 0, len(g.vertices))
	for id := range g.vertices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (g *PartitionGraph) ForEachVertices(handle func(v *PartitionVertex)) {
	for _, id := range g.GetVertexIDs() {
		handle(g.vertices[id])
	}
}

func (g *PartitionGraph) VerticesByColor(color int) []Index {
	ids := make([]Index, 0)
	for _, id := range g.GetVertexIDs() {
		if g.vertices[id].color == color {
			ids = append(ids, id)
		}
	}
	return ids
}

// NextID returns an id one past the largest id in use.
func (g *PartitionGraph) NextID() Index {
	next := Index(0)
	for id := range g.vertices {
		if id+1 > next {
			next = id + 1
		}
	}
	return next
}

// IsBoundary reports whether u has at least one neighbour of a different color.
func (g *PartitionGraph) IsBoundary(u Index) bool {
	v, ok := g.vertices[u]
	if !ok {
		return false
	}
	for w := range v.adjacency {
		if g.vertices[w].color != v.color {
			return true
		}
	}
	return false
}

// NeighborColorCounts counts the neighbours of u per color.
func (g *PartitionGraph) NeighborColorCounts(u Index) (map[int]int, error) {
	v, err := g.GetVertex(u)
	if err != nil {
		return nil, err
	}
	counts := make(map[int]int)
	for w := range v.adjacency {
		counts[g.vertices[w].color]++
	}
	return counts, nil
}

func (g *PartitionGraph) TotalWeight() float64 {
	total := 0.0
	for _, v := range g.vertices {
		total += v.weight
	}
	return total
}

func (g *PartitionGraph) Clone() *PartitionGraph {
	newPg := NewPartitionGraph()
	for id, v := range g.vertices {
		cv := NewPartitionVertex(id, v.referenceId, v.weight, v.color)
		cv.centroid = v.centroid
		for w := range v.adjacency {
			cv.adjacency[w] = struct{}{}
		}
		newPg.vertices[id] = cv
	}
	newPg.numEdges = g.numEdges
	return newPg
}
