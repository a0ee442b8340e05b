package balancer

import (
	"errors"
	"testing"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/config"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/metrics"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/model"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/partitioner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type colorByTag map[int]int

func (c colorByTag) Partition(graph *datastructure.PartitionGraph, numParts int) error {
	graph.ForEachVertices(func(v *datastructure.PartitionVertex) {
		v.SetColor(c[v.GetReferenceID()])
	})
	return nil
}

// threeWayChain lays 14 unit-cost elements in a row colored 2,2 | 1 x10 | 3,3.
func threeWayChain(t *testing.T) (*model.Domain, *partitioner.DomainPartitioner) {
	d := model.NewDomain()
	main := d.GetMain()
	colors := colorByTag{}
	for i := 1; i <= 15; i++ {
		require.NoError(t, main.AddNode(model.NewNode(i, 1, float64(i), 0, 0)))
	}
	for i := 1; i <= 14; i++ {
		require.NoError(t, main.AddElement(model.NewElement(i, []int{i, i + 1}, []float64{1, 1}, 1)))
		switch {
		case i <= 2:
			colors[i] = 2
		case i <= 12:
			colors[i] = 1
		default:
			colors[i] = 3
		}
	}
	for p := 1; p <= 3; p++ {
		_, err := d.AddPartition(p)
		require.NoError(t, err)
	}
	dp := partitioner.NewDomainPartitioner(d, colors, zap.NewNop())
	require.NoError(t, dp.Partition(3, pkg.NO_MAIN_PARTITION))
	return d, dp
}

func weightOf(t *testing.T, weighted *datastructure.PartitionGraph, p int) float64 {
	v, err := weighted.GetVertex(datastructure.Index(p))
	require.NoError(t, err)
	return v.GetWeight()
}

func TestShedHeaviestReducesHeaviestPartition(t *testing.T) {
	_, dp := threeWayChain(t)
	weighted, err := dp.GetPartitionGraph()
	require.NoError(t, err)
	require.Equal(t, 10.0, weightOf(t, weighted, 1))
	require.Equal(t, 2.0, weightOf(t, weighted, 2))
	require.Equal(t, 2.0, weightOf(t, weighted, 3))

	lb := NewShedHeaviest(dp, Options{NumReleases: 1, FactorGreater: 1.0}, nil, zap.NewNop())
	res, err := lb.Balance(weighted)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, 2, res.Moved)
	assert.Equal(t, 8.0, weightOf(t, weighted, 1))
	assert.Equal(t, 3.0, weightOf(t, weighted, 2))
	assert.Equal(t, 3.0, weightOf(t, weighted, 3))

	refreshed, err := dp.GetPartitionGraph()
	require.NoError(t, err)
	assert.Equal(t, 8.0, weightOf(t, refreshed, 1))
}

func TestSwapHeavierToLighterNeighbours(t *testing.T) {
	_, dp := threeWayChain(t)
	weighted, err := dp.GetPartitionGraph()
	require.NoError(t, err)

	lb := NewSwapHeavierToLighterNeighbours(dp, Options{NumReleases: 1, FactorGreater: 2.0}, nil, zap.NewNop())
	res, err := lb.Balance(weighted)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Moved)
	assert.Equal(t, 8.0, weightOf(t, weighted, 1))

	refreshed, err := dp.GetPartitionGraph()
	require.NoError(t, err)
	for _, p := range []int{1, 2, 3} {
		assert.Equal(t, weightOf(t, refreshed, p), weightOf(t, weighted, p), "partition %d", p)
	}
}

func TestSwapHeavierToLighterNeighboursEmptyNeighbour(t *testing.T) {
	tests := []struct {
		name      string
		emptied   int
		wantMoved int
	}{
		{name: "ratio below factor", emptied: 0, wantMoved: 0},
		{name: "empty neighbour ignores factor", emptied: 3, wantMoved: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, dp := threeWayChain(t)
			weighted, err := dp.GetPartitionGraph()
			require.NoError(t, err)
			if tt.emptied != 0 {
				v, err := weighted.GetVertex(datastructure.Index(tt.emptied))
				require.NoError(t, err)
				v.SetWeight(0)
			}

			lb := NewSwapHeavierToLighterNeighbours(dp, Options{NumReleases: 1, FactorGreater: 1e9}, nil, zap.NewNop())
			res, err := lb.Balance(weighted)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMoved, res.Moved)
			assert.Equal(t, 10.0-float64(tt.wantMoved), weightOf(t, weighted, 1))
		})
	}
}

func TestReleaseHeavierToLighterNeighboursRecordsMetrics(t *testing.T) {
	_, dp := threeWayChain(t)
	weighted, err := dp.GetPartitionGraph()
	require.NoError(t, err)

	collector := metrics.NewPrometheus(prometheus.NewRegistry(), "test")
	lb := NewReleaseHeavierToLighterNeighbours(dp, Options{NumReleases: 10, FactorGreater: 1.5}, collector, zap.NewNop())
	res, err := lb.Balance(weighted)
	require.NoError(t, err)
	assert.Greater(t, res.Moved, 0)
	assert.Less(t, res.Rounds, 10)
	assert.Less(t, weightOf(t, weighted, 1), 10.0)
}

type fakeRebalancer struct {
	releases int
	err      error
	perCall  partitioner.MoveResult
}

func (f *fakeRebalancer) SwapBoundary(from, to int, requireAdjacentOnly bool) (partitioner.MoveResult, error) {
	return f.perCall, f.err
}

func (f *fakeRebalancer) ReleaseBoundary(from int, weighted *datastructure.PartitionGraph, mustReleaseToLighter bool,
	factorGreater float64, requireAdjacentOnly bool) (partitioner.MoveResult, error) {
	f.releases++
	return f.perCall, f.err
}

func twoPartitionWeights(t *testing.T, w1, w2 float64) *datastructure.PartitionGraph {
	g := datastructure.NewPartitionGraph()
	require.NoError(t, g.AddVertex(datastructure.NewPartitionVertex(1, 1, w1, 1)))
	require.NoError(t, g.AddVertex(datastructure.NewPartitionVertex(2, 2, w2, 2)))
	require.NoError(t, g.AddEdge(1, 2))
	return g
}

func TestStrategyStopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeRebalancer{err: boom}
	lb := NewReleaseHeavierToLighterNeighbours(fake, Options{NumReleases: 3, FactorGreater: 1}, nil, zap.NewNop())

	_, err := lb.Balance(twoPartitionWeights(t, 5, 1))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, fake.releases)
}

func TestStrategyStopsWhenNothingMoves(t *testing.T) {
	fake := &fakeRebalancer{}
	lb := NewShedHeaviest(fake, Options{NumReleases: 5, FactorGreater: 1}, nil, zap.NewNop())

	res, err := lb.Balance(twoPartitionWeights(t, 5, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, 1, fake.releases)

	fake.perCall = partitioner.MoveResult{Moved: []datastructure.Index{1}, Weight: 1}
	res, err = lb.Balance(twoPartitionWeights(t, 5, 1))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rounds)
	assert.Equal(t, 5, res.Moved)
}

func TestNewFromConfig(t *testing.T) {
	fake := &fakeRebalancer{}
	for _, name := range []string{config.STRATEGY_SHED_HEAVIEST, config.STRATEGY_SWAP_TO_LIGHTER, config.STRATEGY_RELEASE_TO_LIGHTER} {
		lb, err := New(config.BalanceConfig{Strategy: name, NumReleases: 1, FactorGreater: 1}, fake, nil, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, name, lb.Name())
	}
	_, err := New(config.BalanceConfig{Strategy: "random"}, fake, nil, zap.NewNop())
	assert.Error(t, err)
}
