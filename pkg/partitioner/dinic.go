package partitioner

import (
	"container/list"
	"math"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
)

type MaxFlowEdge struct {
	to       int
	rev      int // index of the reversed arc in the adjacency of to
	capacity int
	flow     int
}

func (e *MaxFlowEdge) GetTo() int {
	return e.to
}

func (e *MaxFlowEdge) GetCapacity() int {
	return e.capacity
}

func (e *MaxFlowEdge) GetFlow() int {
	return e.flow
}

func (e *MaxFlowEdge) AddFlow(flow int) {
	e.flow += flow
}

// flowNetwork is the unit capacity network over a subset of the vertices of a partition graph.
// Vertices are renumbered 0..n-1 in the order of ids. Every undirected edge becomes two arcs of
// capacity 1, each the reverse of the other.
type flowNetwork struct {
	ids      []datastructure.Index
	edges    [][]*MaxFlowEdge
	level    []int
	lastEdge []int
	numEdges int
}

func newFlowNetwork(graph *datastructure.PartitionGraph, ids []datastructure.Index) *flowNetwork {
	fn := &flowNetwork{
		ids:      ids,
		edges:    make([][]*MaxFlowEdge, len(ids)),
		level:    make([]int, len(ids)),
		lastEdge: make([]int, len(ids)),
	}
	local := make(map[datastructure.Index]int, len(ids))
	for i, id := range ids {
		local[id] = i
	}
	for u, id := range ids {
		v, err := graph.GetVertex(id)
		if err != nil {
			continue
		}
		v.ForEachNeighbor(func(w datastructure.Index) {
			if x, ok := local[w]; ok && x > u {
				fn.addEdge(u, x)
			}
		})
	}
	return fn
}

func (fn *flowNetwork) addEdge(u, v int) {
	fn.edges[u] = append(fn.edges[u], &MaxFlowEdge{to: v, rev: len(fn.edges[v]), capacity: 1})
	fn.edges[v] = append(fn.edges[v], &MaxFlowEdge{to: u, rev: len(fn.edges[u]) - 1, capacity: 1})
	fn.numEdges++
}

func (fn *flowNetwork) NumberOfVertices() int {
	return len(fn.edges)
}

func (fn *flowNetwork) NumberOfEdges() int {
	return fn.numEdges
}

func (fn *flowNetwork) reversedEdge(e *MaxFlowEdge) *MaxFlowEdge {
	return fn.edges[e.to][e.rev]
}

// resetFlow clears the flow of every arc so the network can be reused for other terminals.
func (fn *flowNetwork) resetFlow() {
	for u := range fn.edges {
		for _, e := range fn.edges[u] {
			e.flow = 0
		}
	}
}

type DinicMaxFlow struct {
	network *flowNetwork
}

func NewDinicMaxFlow(network *flowNetwork) *DinicMaxFlow {
	return &DinicMaxFlow{network: network}
}

func (dmf *DinicMaxFlow) bfsComputeLevelGraph(borderSourceNodes, sourceNodes []int, sinkNodeSet map[int]struct{}) {
	level := dmf.network.level
	for u := range level {
		level[u] = pkg.INVALID_LEVEL
	}
	for _, s := range sourceNodes {
		level[s] = 0
	}

	levelQueue := list.New()
	for _, s := range borderSourceNodes {
		levelQueue.PushBack(s)
	}

	for levelQueue.Len() > 0 {
		u := levelQueue.Remove(levelQueue.Front()).(int)
		if nodeInSet(u, sinkNodeSet) {
			// dont relax sink nodes
			continue
		}

		next := level[u] + 1
		for _, edge := range dmf.network.edges[u] {
			residual := edge.GetCapacity() - edge.GetFlow()
			if residual > 0 && level[edge.GetTo()] > next {
				level[edge.GetTo()] = next
				levelQueue.PushBack(edge.GetTo())
			}
		}
	}
}

// dfsAugmentingPath pushes at most maxFlow along one path of the level graph from u to any sink.
func (dmf *DinicMaxFlow) dfsAugmentingPath(u int, sinkNodeSet map[int]struct{}, maxFlow int) int {
	if nodeInSet(u, sinkNodeSet) || maxFlow == 0 {
		return maxFlow
	}

	level := dmf.network.level
	edges := dmf.network.edges[u]
	for ; dmf.network.lastEdge[u] < len(edges); dmf.network.lastEdge[u]++ {
		edge := edges[dmf.network.lastEdge[u]]
		v := edge.GetTo()
		residual := edge.GetCapacity() - edge.GetFlow()
		if residual <= 0 || level[v] != level[u]+1 {
			continue
		}

		if flow := dmf.dfsAugmentingPath(v, sinkNodeSet, min(residual, maxFlow)); flow > 0 {
			edge.AddFlow(flow)
			dmf.network.reversedEdge(edge).AddFlow(-flow)
			return flow
		}
	}
	level[u] = pkg.INVALID_LEVEL
	return 0
}

// blockingFlow saturates the level graph. In the unit capacity network every augmenting path
// carries one unit, so the result also counts cut edges.
func (dmf *DinicMaxFlow) blockingFlow(sinkNodeSet map[int]struct{}, borderSourceNodes []int) int {
	flowIncrease := 0
	dmf.resetCurrentEdges()
	for _, s := range borderSourceNodes {
		if dmf.network.level[s] == pkg.INVALID_LEVEL {
			continue
		}
		for {
			flow := dmf.dfsAugmentingPath(s, sinkNodeSet, math.MaxInt)
			if flow == 0 {
				break
			}
			flowIncrease += flow
		}
	}
	return flowIncrease
}

func (dmf *DinicMaxFlow) resetCurrentEdges() {
	for u := range dmf.network.lastEdge {
		dmf.network.lastEdge[u] = 0
	}
}

// ComputeMinCut runs Dinic from the source set to the sink set. The returned flags mark the
// vertices reachable from the sources in the final residual network.
func (dmf *DinicMaxFlow) ComputeMinCut(sourceNodes, sinkNodes []int) *MinCut {
	minCut := NewMinCut(dmf.network.NumberOfVertices())

	borderSourceNodes := dmf.buildBorderNodes(sourceNodes)
	borderSinkNodes := dmf.buildBorderNodes(sinkNodes)
	sinkSet := makeNodeSet(sinkNodes)

	numberOfMinCutEdges := 0
	for {
		dmf.bfsComputeLevelGraph(borderSourceNodes, sourceNodes, sinkSet)
		if dmf.isSeparated(borderSinkNodes) {
			break
		}
		flow := dmf.blockingFlow(sinkSet, borderSourceNodes)
		if flow == 0 {
			// dead ends were marked invalid, recompute the levels of the residual network
			dmf.bfsComputeLevelGraph(borderSourceNodes, sourceNodes, sinkSet)
			break
		}
		numberOfMinCutEdges += flow
	}

	dmf.makeMinCutFlags(minCut, numberOfMinCutEdges)
	return minCut
}

func (dmf *DinicMaxFlow) makeMinCutFlags(minCut *MinCut, numberOfMinCutEdges int) {
	for u, l := range dmf.network.level {
		if l != pkg.INVALID_LEVEL {
			minCut.SetFlag(u, true)
		} else {
			minCut.incrementNumNodesInPartitionTwo()
		}
	}
	minCut.setNumberofMinCutEdges(numberOfMinCutEdges)
}

// maximalSourceSide marks every vertex that cannot reach a sink in the residual network. Together
// with the flags of ComputeMinCut it brackets every minimum cut between the same terminals.
func (dmf *DinicMaxFlow) maximalSourceSide(sinkNodes []int) []bool {
	reachesSink := make([]bool, dmf.network.NumberOfVertices())
	queue := list.New()
	for _, t := range sinkNodes {
		reachesSink[t] = true
		queue.PushBack(t)
	}
	for queue.Len() > 0 {
		y := queue.Remove(queue.Front()).(int)
		for _, edge := range dmf.network.edges[y] {
			x := edge.GetTo()
			toY := dmf.network.reversedEdge(edge)
			if !reachesSink[x] && toY.GetCapacity()-toY.GetFlow() > 0 {
				reachesSink[x] = true
				queue.PushBack(x)
			}
		}
	}
	for u := range reachesSink {
		reachesSink[u] = !reachesSink[u]
	}
	return reachesSink
}

func (dmf *DinicMaxFlow) isSeparated(borderSinkNodes []int) bool {
	for _, t := range borderSinkNodes {
		if dmf.network.level[t] != pkg.INVALID_LEVEL {
			return false
		}
	}
	return true
}

// validateResult checks the capacity constraint, flow conservation outside the terminals and
// that the flow value equals the number of cut edges.
func (dmf *DinicMaxFlow) validateResult(minCut *MinCut, sourceSet, sinkSet map[int]struct{}) bool {
	n := dmf.network.NumberOfVertices()
	incomingFlow := make([]int, n)
	outgoingFlow := make([]int, n)
	cutEdgesCount := 0
	sourceOutgoingFlow := 0
	sinkIncomingFlow := 0

	for u := 0; u < n; u++ {
		for _, edge := range dmf.network.edges[u] {
			v := edge.GetTo()
			flow := edge.GetFlow()
			if flow > edge.GetCapacity() {
				return false
			}
			if flow > 0 {
				outgoingFlow[u] += flow
				incomingFlow[v] += flow
			}
			if minCut.GetFlag(u) && !minCut.GetFlag(v) {
				cutEdgesCount++
			}
			if nodeInSet(u, sourceSet) {
				sourceOutgoingFlow += flow
			}
			if nodeInSet(v, sinkSet) {
				sinkIncomingFlow += flow
			}
		}
	}
	for u := 0; u < n; u++ {
		if !nodeInSet(u, sourceSet) && !nodeInSet(u, sinkSet) && incomingFlow[u] != outgoingFlow[u] {
			return false
		}
	}
	return minCut.GetNumberOfMinCutEdges() == cutEdgesCount && sourceOutgoingFlow == sinkIncomingFlow
}

// buildBorderNodes keeps the nodes with a neighbour outside nodeIds.
func (dmf *DinicMaxFlow) buildBorderNodes(nodeIds []int) []int {
	set := makeNodeSet(nodeIds)
	borderNodes := make([]int, 0, len(nodeIds)/10+1)
	for _, u := range nodeIds {
		if dmf.hasNeighborNotInSet(u, set) {
			borderNodes = append(borderNodes, u)
		}
	}
	return borderNodes
}

func (dmf *DinicMaxFlow) hasNeighborNotInSet(u int, set map[int]struct{}) bool {
	for _, edge := range dmf.network.edges[u] {
		if !nodeInSet(edge.GetTo(), set) {
			return true
		}
	}
	return false
}

func nodeInSet(u int, nodeSet map[int]struct{}) bool {
	_, exists := nodeSet[u]
	return exists
}

func makeNodeSet(nodeIds []int) map[int]struct{} {
	set := make(map[int]struct{}, len(nodeIds))
	for _, u := range nodeIds {
		set[u] = struct{}{}
	}
	return set
}
