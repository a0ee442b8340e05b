package numberer

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/analysis"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/model"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/transport"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testNumDOF = 3

// chainModel builds the equation model of a partition holding the given nodes, joined in order
// by two-node elements. fixed lists (node, dof) pairs held by single-point constraints.
func chainModel(t *testing.T, id int, nodeTags []int, fixed ...[2]int) *analysis.Model {
	t.Helper()
	s := model.NewSubdomain(id)
	for _, tag := range nodeTags {
		require.NoError(t, s.AddNode(model.NewNode(tag, testNumDOF, float64(tag), 0, 0)))
	}
	for i := 0; i+1 < len(nodeTags); i++ {
		diag := make([]float64, 2*testNumDOF)
		for j := range diag {
			diag[j] = 1
		}
		require.NoError(t, s.AddElement(model.NewElement(id*100+i+1, []int{nodeTags[i], nodeTags[i+1]}, diag, 1)))
	}
	for i, f := range fixed {
		require.NoError(t, s.AddSPConstraint(model.NewSPConstraint(id*100+i+1, f[0], f[1], 0)))
	}

	m := analysis.NewModel()
	h := analysis.NewPenaltyConstraintHandler(analysis.PenaltyOptions{Value: 1e10}, zap.NewNop())
	h.SetLinks(s, m)
	_, err := h.Handle(nil)
	require.NoError(t, err)
	return m
}

func equationIDs(t *testing.T, m *analysis.Model, nodeTag int) []int {
	t.Helper()
	g, ok := m.GetDOFGroupByNode(nodeTag)
	require.True(t, ok, "no dof group for node %d", nodeTag)
	return g.GetEquationIDs()
}

// requireBijective checks that free slots of distinct nodes never share a number, that copies
// of a shared node agree, and that the free numbers cover 0..numEqn-1.
func requireBijective(t *testing.T, numEqn int, models ...*analysis.Model) {
	t.Helper()
	byNode := make(map[int][]int)
	for _, m := range models {
		m.ForEachDOFGroup(func(g *analysis.DOFGroup) {
			ids := g.GetEquationIDs()
			if prev, ok := byNode[g.GetNodeTag()]; ok {
				assert.Equal(t, prev, ids, "copies of node %d disagree", g.GetNodeTag())
				return
			}
			byNode[g.GetNodeTag()] = ids
		})
	}
	used := make([]int, 0, numEqn)
	for _, ids := range byNode {
		for _, id := range ids {
			if id == pkg.EQN_FIXED {
				continue
			}
			require.GreaterOrEqual(t, id, 0)
			used = append(used, id)
		}
	}
	sort.Ints(used)
	require.Len(t, used, numEqn)
	for i, id := range used {
		require.Equal(t, i, id)
	}
}

func TestRunLocalSharedNodeGetsSameOffset(t *testing.T) {
	tests := []struct {
		name     string
		numberer GraphNumberer
	}{
		{name: "round robin", numberer: nil},
		{name: "reverse cuthill mckee", numberer: NewReverseCuthillMcKee()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			own := chainModel(t, 0, []int{100, 101})
			workers := []*analysis.Model{
				chainModel(t, 1, []int{1, 2, 7}),
				chainModel(t, 2, []int{3, 4}),
				chainModel(t, 3, []int{7, 8, 9}),
				chainModel(t, 4, []int{10, 11}),
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			numEqn, err := RunLocal(ctx, own, workers, tt.numberer, nil, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, 11*testNumDOF, numEqn)

			first := equationIDs(t, workers[0], 7)
			third := equationIDs(t, workers[2], 7)
			assert.Equal(t, first[0], third[0])
			assert.Equal(t, first, third)

			requireBijective(t, numEqn, append([]*analysis.Model{own}, workers...)...)
		})
	}
}

func TestRunLocalSkipsFixedSlots(t *testing.T) {
	own := chainModel(t, 0, []int{1, 2})
	workers := []*analysis.Model{
		chainModel(t, 1, []int{2, 3}, [2]int{3, 1}),
		chainModel(t, 2, []int{3, 4}, [2]int{3, 1}),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	numEqn, err := RunLocal(ctx, own, workers, nil, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 4*testNumDOF-1, numEqn)
	assert.Equal(t, pkg.EQN_FIXED, equationIDs(t, workers[0], 3)[1])
	requireBijective(t, numEqn, own, workers[0], workers[1])
}

func TestRunLocalRoundRobinOrder(t *testing.T) {
	own := chainModel(t, 0, []int{100})
	workers := []*analysis.Model{
		chainModel(t, 1, []int{1, 2}),
		chainModel(t, 2, []int{3}),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	numEqn, err := RunLocal(ctx, own, workers, nil, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 12, numEqn)

	assert.Equal(t, []int{0, 1, 2}, equationIDs(t, workers[0], 1))
	assert.Equal(t, []int{3, 4, 5}, equationIDs(t, workers[1], 3))
	assert.Equal(t, []int{6, 7, 8}, equationIDs(t, workers[0], 2))
	assert.Equal(t, []int{9, 10, 11}, equationIDs(t, own, 100))
}

func TestRunLocalWithoutWorkers(t *testing.T) {
	own := chainModel(t, 0, []int{1, 2, 3}, [2]int{1, 0})
	numEqn, err := RunLocal(context.Background(), own, nil, NewReverseCuthillMcKee(), nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 8, numEqn)
	requireBijective(t, numEqn, own)
}

func TestMissingLink(t *testing.T) {
	_, err := NewWorker(analysis.NewModel(), nil, zap.NewNop()).Number(context.Background())
	assert.ErrorIs(t, err, pkg.ErrMissingLink)

	_, err = NewCoordinator(analysis.NewModel(), nil, 2, nil, nil, zap.NewNop()).Number(context.Background())
	assert.ErrorIs(t, err, pkg.ErrMissingLink)
}

// scriptedChannel answers every graph with a fixed index list.
type scriptedChannel struct {
	list transport.IndexList
	sent *datastructure.PartitionGraph
}

func (c *scriptedChannel) ID() int { return 1 }

func (c *scriptedChannel) SendGraph(_ context.Context, g *datastructure.PartitionGraph) error {
	c.sent = g
	return nil
}

func (c *scriptedChannel) RecvGraph(_ context.Context) (*datastructure.PartitionGraph, error) {
	return nil, transport.ErrClosed
}

func (c *scriptedChannel) SendIndexList(_ context.Context, _ transport.IndexList) error {
	return nil
}

func (c *scriptedChannel) RecvIndexList(_ context.Context) (transport.IndexList, error) {
	return c.list, nil
}

func (c *scriptedChannel) Close() error { return nil }

func TestWorkerRejectsUnknownDofGroup(t *testing.T) {
	m := chainModel(t, 1, []int{1, 2})
	ch := &scriptedChannel{list: transport.IndexList{NumEquations: 6, Pairs: []transport.IndexPair{
		{Tag: 0, Offset: 0},
		{Tag: 99, Offset: 3},
	}}}
	w := NewWorker(m, nil, zap.NewNop())
	w.SetChannel(ch)

	_, err := w.Number(context.Background())
	assert.ErrorIs(t, err, pkg.ErrUnknownDofGroup)
	require.NotNil(t, ch.sent)
	assert.Equal(t, 2, ch.sent.NumberOfVertices())
}

func pathGraph(t *testing.T) *datastructure.PartitionGraph {
	g := datastructure.NewPartitionGraph()
	for i := 0; i < 5; i++ {
		require.NoError(t, g.AddVertex(datastructure.NewPartitionVertex(datastructure.Index(i), i, 1, 0)))
	}
	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(1, 2))
	require.NoError(t, g.AddEdge(2, 3))
	return g
}

func TestReverseCuthillMcKee(t *testing.T) {
	rcm := NewReverseCuthillMcKee()

	order, err := rcm.Number(pathGraph(t), -1)
	require.NoError(t, err)
	assert.Equal(t, []datastructure.Index{3, 2, 1, 0, 4}, order)

	order, err = rcm.Number(pathGraph(t), 2)
	require.NoError(t, err)
	assert.Equal(t, []datastructure.Index{4, 0, 1, 3, 2}, order)

	order, err = rcm.Number(datastructure.NewPartitionGraph(), -1)
	require.NoError(t, err)
	assert.Empty(t, order)
}

func TestNumberOverNATS(t *testing.T) {
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("embedded NATS server not ready")
	}
	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	own := chainModel(t, 0, []int{5, 6})
	workerModel := chainModel(t, 1, []int{6, 7})

	type outcome struct {
		numEqn int
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		ch, err := transport.DialNATS(ctx, nc, "test.numbering")
		if err != nil {
			done <- outcome{err: err}
			return
		}
		w := NewWorker(workerModel, nil, zap.NewNop())
		w.SetChannel(ch)
		n, err := w.Number(ctx)
		done <- outcome{numEqn: n, err: err}
	}()

	hub := transport.NewNATSHub(nc, "test.numbering", zap.NewNop())
	c := NewCoordinator(own, hub, 1, NewReverseCuthillMcKee(), nil, zap.NewNop())
	numEqn, err := c.Number(ctx)
	require.NoError(t, err)
	res := <-done
	require.NoError(t, res.err)

	assert.Equal(t, 9, numEqn)
	assert.Equal(t, numEqn, res.numEqn)
	assert.Equal(t, equationIDs(t, own, 6), equationIDs(t, workerModel, 6))
	requireBijective(t, numEqn, own, workerModel)
}
