package partitioner

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// lineGraph places n unit vertices at x = i and joins the given pairs.
func lineGraph(t *testing.T, n int, edges [][2]int) *datastructure.PartitionGraph {
	t.Helper()
	g := datastructure.NewPartitionGraph()
	for i := 0; i < n; i++ {
		v := datastructure.NewPartitionVertex(datastructure.Index(i), i+1, 1, pkg.INVALID_PARTITION_ID)
		v.SetCentroid(r3.Vector{X: float64(i)})
		require.NoError(t, g.AddVertex(v))
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(datastructure.Index(e[0]), datastructure.Index(e[1])))
	}
	return g
}

func clique(from, to int) [][2]int {
	edges := make([][2]int, 0)
	for u := from; u <= to; u++ {
		for v := u + 1; v <= to; v++ {
			edges = append(edges, [2]int{u, v})
		}
	}
	return edges
}

// dumbbell joins the clique 0..4 and the clique 5..11 through the single edge 4-5.
func dumbbell(t *testing.T) *datastructure.PartitionGraph {
	edges := append(clique(0, 4), clique(5, 11)...)
	edges = append(edges, [2]int{4, 5})
	return lineGraph(t, 12, edges)
}

func flags(mc *MinCut) []bool {
	out := make([]bool, len(mc.flags))
	copy(out, mc.flags)
	return out
}

func TestComputeMinCutFindsBridge(t *testing.T) {
	g := dumbbell(t)
	network := newFlowNetwork(g, g.GetVertexIDs())
	require.Equal(t, 10+21+1, network.NumberOfEdges())

	dmf := NewDinicMaxFlow(network)
	sources, sinks := []int{0, 1}, []int{10, 11}
	minCut := dmf.ComputeMinCut(sources, sinks)

	assert.Equal(t, 1, minCut.GetNumberOfMinCutEdges())
	assert.Equal(t, 7, minCut.GetNumNodesInPartitionTwo())
	want := []bool{true, true, true, true, true, false, false, false, false, false, false, false}
	assert.Equal(t, want, flags(minCut))
	assert.Equal(t, want, dmf.maximalSourceSide(sinks))
	assert.True(t, dmf.validateResult(minCut, makeNodeSet(sources), makeNodeSet(sinks)))
}

func TestComputeMinCutOnCycle(t *testing.T) {
	g := lineGraph(t, 6, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}, {5, 0}})
	dmf := NewDinicMaxFlow(newFlowNetwork(g, g.GetVertexIDs()))

	sources, sinks := []int{0}, []int{3}
	minCut := dmf.ComputeMinCut(sources, sinks)
	assert.Equal(t, 2, minCut.GetNumberOfMinCutEdges())
	assert.True(t, dmf.validateResult(minCut, makeNodeSet(sources), makeNodeSet(sinks)))

	// every edge of both paths is saturated, so the cuts around the source and around the sink
	// are both minimum
	assert.Equal(t, []bool{true, false, false, false, false, false}, flags(minCut))
	assert.Equal(t, []bool{true, true, true, false, true, true}, dmf.maximalSourceSide(sinks))
}

func TestComputeMinCutAfterReset(t *testing.T) {
	g := lineGraph(t, 4, [][2]int{{0, 1}, {1, 2}, {2, 3}})
	network := newFlowNetwork(g, g.GetVertexIDs())

	first := NewDinicMaxFlow(network).ComputeMinCut([]int{0}, []int{3})
	require.Equal(t, 1, first.GetNumberOfMinCutEdges())

	network.resetFlow()
	second := NewDinicMaxFlow(network).ComputeMinCut([]int{3}, []int{0})
	assert.Equal(t, 1, second.GetNumberOfMinCutEdges())
	assert.Equal(t, []bool{false, false, false, true}, flags(second))
}

func TestSourcesAndSinks(t *testing.T) {
	order := func(n int) []projectedVertex {
		out := make([]projectedVertex, n)
		for i := range out {
			out[i] = projectedVertex{local: n - 1 - i, projection: float64(i), weight: 1}
		}
		return out
	}

	tests := []struct {
		name        string
		n           int
		leftShare   float64
		wantSources []int
		wantSinks   []int
	}{
		{name: "even split", n: 10, leftShare: 0.5, wantSources: []int{9, 8, 7, 6}, wantSinks: []int{0, 1, 2, 3}},
		{name: "one third", n: 9, leftShare: 1.0 / 3, wantSources: []int{8, 7}, wantSinks: []int{0, 1, 2, 3}},
		{name: "two vertices", n: 2, leftShare: 0.5, wantSources: []int{1}, wantSinks: []int{0}},
		{name: "single vertex", n: 1, leftShare: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources, sinks := sourcesAndSinks(order(tt.n), tt.leftShare, pkg.INERTIAL_FLOW_SOURCE_SINK_RATE)
			if tt.wantSources == nil {
				assert.Empty(t, sources)
				assert.Empty(t, sinks)
				return
			}
			assert.Equal(t, tt.wantSources, sources)
			assert.Equal(t, tt.wantSinks, sinks)
		})
	}
}

func TestRecursiveBisectionCutsDumbbellBridge(t *testing.T) {
	g := dumbbell(t)
	require.NoError(t, NewRecursiveBisection(pkg.DEFAULT_PARTITIONER_SEED, zap.NewNop()).Partition(g, 2))

	color := func(i int) int {
		v, err := g.GetVertex(datastructure.Index(i))
		require.NoError(t, err)
		return v.GetColor()
	}
	for i := 1; i <= 4; i++ {
		assert.Equal(t, color(0), color(i), "vertex %d", i)
	}
	for i := 6; i <= 11; i++ {
		assert.Equal(t, color(5), color(i), "vertex %d", i)
	}
	assert.NotEqual(t, color(0), color(5))
	assert.ElementsMatch(t, []int{1, 2}, []int{color(0), color(5)})

	cut := 0
	g.ForEachVertices(func(v *datastructure.PartitionVertex) {
		v.ForEachNeighbor(func(w datastructure.Index) {
			if v.GetID() < w && v.GetColor() != color(int(w)) {
				cut++
			}
		})
	})
	assert.Equal(t, 1, cut)
}

func TestRecursiveBisectionFallsBackToPrefixSplit(t *testing.T) {
	// a path has a minimum cut everywhere, the flow cut between its ends is off balance
	edges := make([][2]int, 0)
	for i := 0; i+1 < 12; i++ {
		edges = append(edges, [2]int{i, i + 1})
	}
	g := lineGraph(t, 12, edges)
	require.NoError(t, NewRecursiveBisection(pkg.DEFAULT_PARTITIONER_SEED, zap.NewNop()).Partition(g, 2))

	counts := map[int]int{}
	g.ForEachVertices(func(v *datastructure.PartitionVertex) {
		counts[v.GetColor()]++
	})
	assert.Equal(t, map[int]int{1: 6, 2: 6}, counts)
}
