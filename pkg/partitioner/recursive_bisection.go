package partitioner

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// GraphPartitioner assigns a color in [1, numParts] to every vertex of the graph in place.
type GraphPartitioner interface {
	Partition(graph *datastructure.PartitionGraph, numParts int) error
}

// RecursiveBisection is an inertial flow k-way partitioner. It recursively orders the vertices by
// the projection of their centroids on a set of directions, cuts every order with a max flow
// between its two ends and keeps the cut with the fewest cut edges.
type RecursiveBisection struct {
	directions []r3.Vector
	logger     *zap.Logger
}

func NewRecursiveBisection(seed uint64, logger *zap.Logger) *RecursiveBisection {
	directions := []r3.Vector{
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
		r3.Vector{X: 1, Y: 1, Z: 0}.Normalize(),
		r3.Vector{X: 1, Y: -1, Z: 0}.Normalize(),
	}
	rnd := rand.New(rand.NewSource(seed))
	for len(directions) < pkg.INERTIAL_BISECTION_DIRECTIONS {
		d := r3.Vector{X: rnd.NormFloat64(), Y: rnd.NormFloat64(), Z: rnd.NormFloat64()}
		if d.Norm() == 0 {
			continue
		}
		directions = append(directions, d.Normalize())
	}
	return &RecursiveBisection{
		directions: directions,
		logger:     logger,
	}
}

func (rb *RecursiveBisection) Partition(graph *datastructure.PartitionGraph, numParts int) error {
	if numParts < 1 {
		return fmt.Errorf("number of partitions must be positive, got %d", numParts)
	}
	ids := graph.GetVertexIDs()
	if len(ids) < numParts {
		return fmt.Errorf("cannot split %d vertices into %d partitions", len(ids), numParts)
	}
	rb.bisect(graph, ids, pkg.FIRST_PARTITION_ID, numParts)
	rb.logger.Sugar().Debugf("recursive bisection colored %d vertices into %d partitions", len(ids), numParts)
	return nil
}

type bisectionCut struct {
	left, right []datastructure.Index
	cutEdges    int
	imbalance   float64
}

// projectedVertex is one vertex of the flow network with its centroid projection.
type projectedVertex struct {
	local      int
	projection float64
	weight     float64
}

func (rb *RecursiveBisection) bisect(graph *datastructure.PartitionGraph, ids []datastructure.Index, firstColor, numParts int) {
	if numParts == 1 {
		for _, id := range ids {
			v, _ := graph.GetVertex(id)
			v.SetColor(firstColor)
		}
		return
	}

	leftParts := numParts / 2
	rightParts := numParts - leftParts

	network := newFlowNetwork(graph, ids)
	var best *bisectionCut
	for _, dir := range rb.directions {
		cut := rb.splitAlong(graph, network, dir, leftParts, rightParts)
		if best == nil || cut.cutEdges < best.cutEdges ||
			(cut.cutEdges == best.cutEdges && cut.imbalance < best.imbalance) {
			best = cut
		}
	}

	rb.bisect(graph, best.left, firstColor, leftParts)
	rb.bisect(graph, best.right, firstColor+leftParts, rightParts)
}

// splitAlong orders the vertices by centroid projection on dir and takes the inertial flow cut of
// that order. When the flow cut is too unbalanced it falls back to cutting the order where the
// left side reaches its share of the total weight.
func (rb *RecursiveBisection) splitAlong(graph *datastructure.PartitionGraph, network *flowNetwork, dir r3.Vector,
	leftParts, rightParts int) *bisectionCut {
	order := make([]projectedVertex, len(network.ids))
	total := 0.0
	for i, id := range network.ids {
		v, _ := graph.GetVertex(id)
		order[i] = projectedVertex{local: i, projection: v.GetCentroid().Dot(dir), weight: v.GetWeight()}
		total += v.GetWeight()
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].projection == order[j].projection {
			return network.ids[order[i].local] < network.ids[order[j].local]
		}
		return order[i].projection < order[j].projection
	})

	flowCut := rb.computeInertialFlow(network, order, leftParts, rightParts)

	target := total * float64(leftParts) / float64(leftParts+rightParts)
	k := len(order)
	prefix := 0.0
	for i, it := range order {
		prefix += it.weight
		if prefix >= target {
			k = i + 1
			break
		}
	}
	k = max(k, leftParts)
	k = min(k, len(order)-rightParts)

	onLeft := make([]bool, len(order))
	for _, it := range order[:k] {
		onLeft[it.local] = true
	}
	prefixCut := newBisectionCut(network, order, onLeft, target)
	if flowCut == nil {
		return prefixCut
	}
	// the prefix cut wins with fewer cut edges, or as many and a better balance
	if prefixCut.cutEdges < flowCut.cutEdges ||
		(prefixCut.cutEdges == flowCut.cutEdges && prefixCut.imbalance < flowCut.imbalance) {
		return prefixCut
	}
	return flowCut
}

// newBisectionCut splits the order by onLeft, indexed by flow network vertex, and counts the
// edges crossing the split.
func newBisectionCut(network *flowNetwork, order []projectedVertex, onLeft []bool, target float64) *bisectionCut {
	cut := &bisectionCut{
		left:  make([]datastructure.Index, 0, len(order)),
		right: make([]datastructure.Index, 0, len(order)),
	}
	leftWeight := 0.0
	for _, it := range order {
		if onLeft[it.local] {
			cut.left = append(cut.left, network.ids[it.local])
			leftWeight += it.weight
			for _, edge := range network.edges[it.local] {
				if !onLeft[edge.GetTo()] {
					cut.cutEdges++
				}
			}
		} else {
			cut.right = append(cut.right, network.ids[it.local])
		}
	}
	cut.imbalance = math.Abs(leftWeight - target)
	return cut
}
