package balancer

import (
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/metrics"
	"go.uber.org/zap"
)

// ShedHeaviest releases the boundary of the heaviest partition to lighter neighbours.
type ShedHeaviest struct {
	strategy
}

func NewShedHeaviest(rebalancer Rebalancer, opts Options, collector metrics.Collector, logger *zap.Logger) *ShedHeaviest {
	return &ShedHeaviest{strategy: newStrategy("shed_heaviest", rebalancer, opts, collector, logger)}
}

func (s *ShedHeaviest) Balance(weighted *datastructure.PartitionGraph) (Result, error) {
	heaviest, maxWeight := -1, 0.0
	for _, p := range partitionIDs(weighted) {
		v, _ := weighted.GetVertex(datastructure.Index(p))
		if heaviest == -1 || v.GetWeight() > maxWeight {
			heaviest, maxWeight = p, v.GetWeight()
		}
	}
	if heaviest == -1 {
		return Result{}, nil
	}

	return s.runRounds(weighted, func(res *Result) error {
		moved, err := s.rebalancer.ReleaseBoundary(heaviest, weighted, true, s.opts.FactorGreater, s.opts.RequireAdjacentOnly)
		res.add(moved)
		return err
	})
}

// SwapHeavierToLighterNeighbours swaps whole boundaries from each partition to every weighted
// neighbour that is empty or lighter by more than FactorGreater.
type SwapHeavierToLighterNeighbours struct {
	strategy
}

func NewSwapHeavierToLighterNeighbours(rebalancer Rebalancer, opts Options, collector metrics.Collector, logger *zap.Logger) *SwapHeavierToLighterNeighbours {
	return &SwapHeavierToLighterNeighbours{strategy: newStrategy("swap_heavier_to_lighter_neighbours", rebalancer, opts, collector, logger)}
}

func (s *SwapHeavierToLighterNeighbours) Balance(weighted *datastructure.PartitionGraph) (Result, error) {
	return s.runRounds(weighted, func(res *Result) error {
		for _, p := range partitionIDs(weighted) {
			pv, _ := weighted.GetVertex(datastructure.Index(p))
			for _, q := range pv.GetAdjacency() {
				qv, err := weighted.GetVertex(q)
				if err != nil {
					return err
				}
				if pv.GetWeight() <= qv.GetWeight() {
					continue
				}
				if qv.GetWeight() != 0 && pv.GetWeight()/qv.GetWeight() <= s.opts.FactorGreater {
					continue
				}

				moved, err := s.rebalancer.SwapBoundary(p, int(q), s.opts.RequireAdjacentOnly)
				if err != nil {
					return err
				}
				res.add(moved)
				pv.AddWeight(-moved.Weight)
				qv.AddWeight(moved.Weight)
			}
		}
		return nil
	})
}

// ReleaseHeavierToLighterNeighbours releases the boundary of every partition once per round.
type ReleaseHeavierToLighterNeighbours struct {
	strategy
}

func NewReleaseHeavierToLighterNeighbours(rebalancer Rebalancer, opts Options, collector metrics.Collector, logger *zap.Logger) *ReleaseHeavierToLighterNeighbours {
	return &ReleaseHeavierToLighterNeighbours{strategy: newStrategy("release_heavier_to_lighter_neighbours", rebalancer, opts, collector, logger)}
}

func (s *ReleaseHeavierToLighterNeighbours) Balance(weighted *datastructure.PartitionGraph) (Result, error) {
	return s.runRounds(weighted, func(res *Result) error {
		for _, p := range partitionIDs(weighted) {
			moved, err := s.rebalancer.ReleaseBoundary(p, weighted, true, s.opts.FactorGreater, s.opts.RequireAdjacentOnly)
			res.add(moved)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
