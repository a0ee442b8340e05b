package numberer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/analysis"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/metrics"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/transport"
	"go.uber.org/zap"
)

// Coordinator merges the dof-group graphs of every worker with its own, orders the merged graph
// and hands each worker the starting offset of every one of its dof groups.
type Coordinator struct {
	model      *analysis.Model
	hub        transport.Hub
	numWorkers int
	numberer   GraphNumberer
	collector  metrics.Collector
	logger     *zap.Logger

	channels []transport.Channel
}

// NewCoordinator accepts a nil numberer, in which case the merged graph is ordered round-robin
// over the workers followed by the coordinator's own dof groups.
func NewCoordinator(m *analysis.Model, hub transport.Hub, numWorkers int, numberer GraphNumberer,
	collector metrics.Collector, logger *zap.Logger) *Coordinator {
	if collector == nil {
		collector = metrics.NewNop()
	}
	return &Coordinator{
		model:      m,
		hub:        hub,
		numWorkers: numWorkers,
		numberer:   numberer,
		collector:  collector,
		logger:     logger,
	}
}

// localToMerged maps the ids of one source graph onto the merged graph, in local id order.
type localToMerged struct {
	local  []datastructure.Index
	merged map[datastructure.Index]datastructure.Index
}

// mergedGraph is the running union of every source graph keyed by reference id.
type mergedGraph struct {
	graph *datastructure.PartitionGraph
	byRef map[int]datastructure.Index
}

func newMergedGraph() *mergedGraph {
	return &mergedGraph{graph: datastructure.NewPartitionGraph(), byRef: make(map[int]datastructure.Index)}
}

// add merges src into the running graph. source becomes the color of vertices it creates.
func (m *mergedGraph) add(src *datastructure.PartitionGraph, source int) (localToMerged, error) {
	mapping := localToMerged{local: src.GetVertexIDs(), merged: make(map[datastructure.Index]datastructure.Index)}
	for _, u := range mapping.local {
		v, err := src.GetVertex(u)
		if err != nil {
			return mapping, err
		}
		if id, ok := m.byRef[v.GetReferenceID()]; ok {
			existing, _ := m.graph.GetVertex(id)
			if v.GetWeight() > existing.GetWeight() {
				existing.SetWeight(v.GetWeight())
			}
			mapping.merged[u] = id
			continue
		}
		id := datastructure.Index(m.graph.NumberOfVertices())
		if err := m.graph.AddVertex(datastructure.NewPartitionVertex(id, v.GetReferenceID(), v.GetWeight(), source)); err != nil {
			return mapping, err
		}
		m.byRef[v.GetReferenceID()] = id
		mapping.merged[u] = id
	}

	for _, u := range mapping.local {
		v, _ := src.GetVertex(u)
		var edgeErr error
		v.ForEachNeighbor(func(w datastructure.Index) {
			mw, ok := mapping.merged[w]
			if !ok || edgeErr != nil {
				return
			}
			edgeErr = m.graph.AddEdge(mapping.merged[u], mw)
		})
		if edgeErr != nil {
			return mapping, edgeErr
		}
	}
	return mapping, nil
}

// Number runs one numbering pass and returns the number of equations of the whole model.
// Workers are accepted on the first pass and their channels reused afterwards.
func (c *Coordinator) Number(ctx context.Context) (int, error) {
	numEqn, err := c.number(ctx)
	c.collector.RecordNumberingPass(ROLE_COORDINATOR, err == nil)
	if err == nil {
		c.collector.SetNumEquations(numEqn)
	}
	return numEqn, err
}

func (c *Coordinator) number(ctx context.Context) (int, error) {
	if err := c.connect(ctx); err != nil {
		return 0, err
	}
	c.model.ResetNumbering()

	merged := newMergedGraph()
	own, err := c.model.GetDOFGroupGraph()
	if err != nil {
		return 0, err
	}
	ownMap, err := merged.add(own, 0)
	if err != nil {
		return 0, err
	}

	workerMaps := make([]localToMerged, len(c.channels))
	for i, ch := range c.channels {
		g, err := ch.RecvGraph(ctx)
		if err != nil {
			return 0, fmt.Errorf("receive graph from worker %d: %w", ch.ID(), err)
		}
		workerMaps[i], err = merged.add(g, ch.ID())
		if err != nil {
			return 0, fmt.Errorf("merge graph of worker %d: %w", ch.ID(), err)
		}
	}

	order, err := c.order(merged.graph, ownMap, workerMaps)
	if err != nil {
		return 0, err
	}

	offsets := make(map[datastructure.Index]int, len(order))
	numEqn := 0
	for _, id := range order {
		v, _ := merged.graph.GetVertex(id)
		offsets[id] = numEqn
		numEqn += int(math.Round(v.GetWeight()))
	}

	for i, ch := range c.channels {
		list := transport.IndexList{NumEquations: numEqn, Pairs: make([]transport.IndexPair, 0, len(workerMaps[i].local))}
		for _, u := range workerMaps[i].local {
			list.Pairs = append(list.Pairs, transport.IndexPair{Tag: u, Offset: offsets[workerMaps[i].merged[u]]})
		}
		if err := ch.SendIndexList(ctx, list); err != nil {
			return 0, fmt.Errorf("send index list to worker %d: %w", ch.ID(), err)
		}
	}

	for _, u := range ownMap.local {
		if _, err := c.model.AssignFromOffset(u, offsets[ownMap.merged[u]]); err != nil {
			return 0, err
		}
	}

	c.logger.Sugar().Infof("numbered %d dof groups from %d workers, %d equations",
		merged.graph.NumberOfVertices(), len(c.channels), numEqn)
	return numEqn, nil
}

func (c *Coordinator) connect(ctx context.Context) error {
	if c.channels != nil || c.numWorkers == 0 {
		return nil
	}
	if c.hub == nil {
		return fmt.Errorf("coordinator expects %d workers: %w", c.numWorkers, pkg.ErrMissingLink)
	}
	channels, err := c.hub.Accept(ctx, c.numWorkers)
	if err != nil {
		return fmt.Errorf("accept workers: %w", err)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID() < channels[j].ID() })
	c.channels = channels
	return nil
}

// order returns every merged vertex exactly once.
func (c *Coordinator) order(graph *datastructure.PartitionGraph, own localToMerged,
	workers []localToMerged) ([]datastructure.Index, error) {
	seen := make(map[datastructure.Index]bool, graph.NumberOfVertices())
	order := make([]datastructure.Index, 0, graph.NumberOfVertices())
	visit := func(id datastructure.Index) {
		if !seen[id] && graph.HasVertex(id) {
			seen[id] = true
			order = append(order, id)
		}
	}

	if c.numberer != nil {
		hint := -1
		if last, ok := c.model.GetLastDOFGroupHint(); ok {
			hint = int(own.merged[last])
		}
		numbered, err := c.numberer.Number(graph, hint)
		if err != nil {
			return nil, fmt.Errorf("order merged graph: %w", err)
		}
		for _, id := range numbered {
			visit(id)
		}
	} else {
		longest := 0
		for _, w := range workers {
			longest = max(longest, len(w.local))
		}
		for i := 0; i < longest; i++ {
			for _, w := range workers {
				if i < len(w.local) {
					visit(w.merged[w.local[i]])
				}
			}
		}
		for _, u := range own.local {
			visit(own.merged[u])
		}
	}

	for _, id := range graph.GetVertexIDs() {
		visit(id)
	}
	return order, nil
}

// Close closes every accepted channel.
func (c *Coordinator) Close() error {
	for _, ch := range c.channels {
		_ = ch.Close()
	}
	c.channels = nil
	return nil
}
