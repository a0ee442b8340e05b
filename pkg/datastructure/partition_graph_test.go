package datastructure

import (
	"errors"
	"testing"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds 0-1-2-...-(n-1) with the given colors.
func chain(t *testing.T, colors []int) *PartitionGraph {
	t.Helper()
	g := NewPartitionGraph()
	for i, c := range colors {
		require.NoError(t, g.AddVertex(NewPartitionVertex(Index(i), 100+i, 1, c)))
	}
	for i := 1; i < len(colors); i++ {
		require.NoError(t, g.AddEdge(Index(i-1), Index(i)))
	}
	return g
}

func TestAddEdgeIsSymmetric(t *testing.T) {
	g := chain(t, []int{1, 1, 1})

	v0, err := g.GetVertex(0)
	require.NoError(t, err)
	v1, err := g.GetVertex(1)
	require.NoError(t, err)

	assert.True(t, v0.HasNeighbor(1))
	assert.True(t, v1.HasNeighbor(0))
	assert.Equal(t, 2, g.NumberOfEdges())

	require.NoError(t, g.AddEdge(1, 0))
	assert.Equal(t, 2, g.NumberOfEdges(), "duplicate edge must not be counted twice")
}

func TestAddEdgeUnknownVertex(t *testing.T) {
	g := chain(t, []int{1, 1})

	err := g.AddEdge(0, 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkg.ErrUnknownVertex))

	_, err = g.GetVertex(9)
	assert.True(t, errors.Is(err, pkg.ErrUnknownVertex))
}

func TestRemoveVertexLeavesNoDanglingEdges(t *testing.T) {
	g := chain(t, []int{1, 1, 1})

	require.NoError(t, g.RemoveVertex(1))

	v0, _ := g.GetVertex(0)
	v2, _ := g.GetVertex(2)
	assert.False(t, v0.HasNeighbor(1))
	assert.False(t, v2.HasNeighbor(1))
	assert.Equal(t, 0, g.NumberOfEdges())
	assert.True(t, errors.Is(g.RemoveVertex(1), pkg.ErrUnknownVertex))
}

func TestVerticesByColor(t *testing.T) {
	g := chain(t, []int{1, 2, 1, 2, 2})

	assert.Equal(t, []Index{0, 2}, g.VerticesByColor(1))
	assert.Equal(t, []Index{1, 3, 4}, g.VerticesByColor(2))
	assert.Empty(t, g.VerticesByColor(3))
}

func TestBoundaryGraphIncrementalRefresh(t *testing.T) {
	g := chain(t, []int{1, 1, 2, 2})
	boundaries := map[int]*BoundaryGraph{
		1: NewBoundaryGraph(g, 1),
		2: NewBoundaryGraph(g, 2),
	}
	for _, b := range boundaries {
		b.Build()
	}
	assert.Equal(t, []Index{1}, boundaries[1].GetVertexIDs())
	assert.Equal(t, []Index{2}, boundaries[2].GetVertexIDs())

	v1, _ := g.GetVertex(1)
	v1.SetColor(2)
	g.RefreshBoundaries(boundaries, 1, 1)

	assert.Equal(t, []Index{0}, boundaries[1].GetVertexIDs())
	assert.Equal(t, []Index{1}, boundaries[2].GetVertexIDs(), "vertex 2 no longer touches color 1")

	v1.SetColor(1)
	g.RefreshBoundaries(boundaries, 1, 2)

	assert.Equal(t, []Index{1}, boundaries[1].GetVertexIDs())
	assert.Equal(t, []Index{2}, boundaries[2].GetVertexIDs())
}

func TestNeighborColorCounts(t *testing.T) {
	g := NewPartitionGraph()
	for i, c := range []int{1, 2, 2, 3} {
		require.NoError(t, g.AddVertex(NewPartitionVertex(Index(i), i, 1, c)))
	}
	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(0, 2))
	require.NoError(t, g.AddEdge(0, 3))

	counts, err := g.NeighborColorCounts(0)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{2: 2, 3: 1}, counts)
}

func TestCloneIsIndependent(t *testing.T) {
	g := chain(t, []int{1, 2})
	c := g.Clone()

	v, _ := c.GetVertex(0)
	v.SetColor(5)
	require.NoError(t, c.RemoveVertex(1))

	orig, _ := g.GetVertex(0)
	assert.Equal(t, 1, orig.GetColor())
	assert.True(t, g.HasVertex(1))
	assert.Equal(t, 1, g.NumberOfEdges())
}

func TestNodeLocation(t *testing.T) {
	ls := NewNodeLocations()
	a := ls.Create(5)
	assert.Same(t, a, ls.Create(5))

	a.Add(2)
	a.Add(1)
	assert.False(t, a.Add(1))
	assert.Equal(t, []int{1, 2}, a.GetPartitions())
	assert.True(t, a.IsShared())

	b := ls.Create(6)
	b.Add(3)
	assert.True(t, b.Union(a))
	assert.False(t, b.Union(a))
	assert.True(t, b.IsSupersetOf(a))
	assert.False(t, a.IsSupersetOf(b))

	assert.Equal(t, []int{5, 6}, ls.GetNodeTags())
}

func TestMinHeap(t *testing.T) {
	h := NewMinHeap[int]()
	for i, r := range []float64{5, 3, 8, 1, 4} {
		h.Insert(NewPriorityQueueNode(r, i))
	}
	require.NoError(t, h.DecreaseKey(NewPriorityQueueNode(0.5, 2)))

	got := make([]int, 0)
	for h.Size() > 0 {
		n, err := h.ExtractMin()
		require.NoError(t, err)
		got = append(got, n.GetItem())
	}
	assert.Equal(t, []int{2, 3, 1, 4, 0}, got)

	_, err := h.ExtractMin()
	assert.Error(t, err)
}
