package balancer

import (
	"fmt"
	"sort"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/config"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/metrics"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/partitioner"
	"go.uber.org/zap"
)

// Rebalancer is the part of the domain partitioner the strategies drive.
type Rebalancer interface {
	SwapBoundary(from, to int, requireAdjacentOnly bool) (partitioner.MoveResult, error)
	ReleaseBoundary(from int, weighted *datastructure.PartitionGraph, mustReleaseToLighter bool,
		factorGreater float64, requireAdjacentOnly bool) (partitioner.MoveResult, error)
}

// LoadBalancer moves elements between partitions given the current weighted partition graph
// (one vertex per partition, vertex id = partition id).
type LoadBalancer interface {
	Balance(weighted *datastructure.PartitionGraph) (Result, error)
	Name() string
}

type Result struct {
	Rounds int
	Moved  int
	Weight float64
}

func (r *Result) add(res partitioner.MoveResult) {
	r.Moved += res.NumMoved()
	r.Weight += res.Weight
}

type Options struct {
	NumReleases         int
	FactorGreater       float64
	RequireAdjacentOnly bool
}

type strategy struct {
	name       string
	rebalancer Rebalancer
	opts       Options
	collector  metrics.Collector
	logger     *zap.Logger
}

func newStrategy(name string, rebalancer Rebalancer, opts Options, collector metrics.Collector, logger *zap.Logger) strategy {
	if collector == nil {
		collector = metrics.NewNop()
	}
	if opts.NumReleases < 1 {
		opts.NumReleases = 1
	}
	return strategy{name: name, rebalancer: rebalancer, opts: opts, collector: collector, logger: logger}
}

func (s *strategy) Name() string {
	return s.name
}

// runRounds calls round up to NumReleases times, stopping on the first error or on a round
// that moves nothing.
func (s *strategy) runRounds(weighted *datastructure.PartitionGraph, round func(res *Result) error) (Result, error) {
	res := Result{}
	for i := 0; i < s.opts.NumReleases; i++ {
		before := res.Moved
		err := round(&res)
		res.Rounds++
		if err != nil {
			s.logger.Error("balance round failed", zap.String("strategy", s.name), zap.Int("round", i), zap.Error(err))
			s.record(weighted, res)
			return res, fmt.Errorf("%s round %d: %w", s.name, i, err)
		}
		if res.Moved == before {
			break
		}
	}
	s.record(weighted, res)
	s.logger.Sugar().Infof("%s moved %d elements (weight %.3f) in %d rounds", s.name, res.Moved, res.Weight, res.Rounds)
	return res, nil
}

func (s *strategy) record(weighted *datastructure.PartitionGraph, res Result) {
	s.collector.RecordMoves(s.name, res.Moved, res.Weight)
	s.collector.RecordBalanceRounds(s.name, res.Rounds)
	weighted.ForEachVertices(func(v *datastructure.PartitionVertex) {
		s.collector.SetPartitionWeight(int(v.GetID()), v.GetWeight())
	})
}

// New builds the strategy named in cfg.
func New(cfg config.BalanceConfig, rebalancer Rebalancer, collector metrics.Collector, logger *zap.Logger) (LoadBalancer, error) {
	opts := Options{
		NumReleases:         cfg.NumReleases,
		FactorGreater:       cfg.FactorGreater,
		RequireAdjacentOnly: cfg.RequireAdjacentOnly,
	}
	switch cfg.Strategy {
	case config.STRATEGY_SHED_HEAVIEST:
		return NewShedHeaviest(rebalancer, opts, collector, logger), nil
	case config.STRATEGY_SWAP_TO_LIGHTER:
		return NewSwapHeavierToLighterNeighbours(rebalancer, opts, collector, logger), nil
	case config.STRATEGY_RELEASE_TO_LIGHTER:
		return NewReleaseHeavierToLighterNeighbours(rebalancer, opts, collector, logger), nil
	default:
		return nil, fmt.Errorf("unknown balance strategy %q", cfg.Strategy)
	}
}

func partitionIDs(weighted *datastructure.PartitionGraph) []int {
	ids := weighted.GetVertexIDs()
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	sort.Ints(out)
	return out
}
