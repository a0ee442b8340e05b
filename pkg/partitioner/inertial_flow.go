package partitioner

import (
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
)

// sourcesAndSinks takes the sources from the low end of the projection order and the sinks from
// the high end. leftShare is the share of the weight the source side should end up with.
func sourcesAndSinks(order []projectedVertex, leftShare, ratio float64) ([]int, []int) {
	n := len(order)
	numSources := max(1, int(float64(n)*2*ratio*leftShare))
	numSinks := max(1, int(float64(n)*2*ratio*(1-leftShare)))
	if numSources+numSinks > n {
		return nil, nil
	}

	sourceNodes := make([]int, 0, numSources)
	sinkNodes := make([]int, 0, numSinks)
	for i := 0; i < numSources; i++ {
		sourceNodes = append(sourceNodes, order[i].local)
	}
	for i := 0; i < numSinks; i++ {
		sinkNodes = append(sinkNodes, order[n-1-i].local)
	}
	return sourceNodes, sinkNodes
}

// computeInertialFlow cuts the projection order with a minimum cut between its two ends. Of the
// source sides bracketing the minimum cuts it keeps the better balanced one, and returns nil when
// neither gives both sides enough vertices or stays within INERTIAL_FLOW_BALANCE_TOLERANCE of
// the target weight.
func (rb *RecursiveBisection) computeInertialFlow(network *flowNetwork, order []projectedVertex,
	leftParts, rightParts int) *bisectionCut {
	leftShare := float64(leftParts) / float64(leftParts+rightParts)
	sources, sinks := sourcesAndSinks(order, leftShare, pkg.INERTIAL_FLOW_SOURCE_SINK_RATE)
	if len(sources) == 0 {
		return nil
	}

	network.resetFlow()
	dmf := NewDinicMaxFlow(network)
	minCut := dmf.ComputeMinCut(sources, sinks)

	total := 0.0
	for _, it := range order {
		total += it.weight
	}
	tolerance := pkg.INERTIAL_FLOW_BALANCE_TOLERANCE * total

	var best *bisectionCut
	for _, onLeft := range [][]bool{minCut.flags, dmf.maximalSourceSide(sinks)} {
		cut := newBisectionCut(network, order, onLeft, total*leftShare)
		if len(cut.left) < leftParts || len(cut.right) < rightParts || cut.imbalance > tolerance {
			continue
		}
		if best == nil || cut.imbalance < best.imbalance {
			best = cut
		}
	}
	return best
}
