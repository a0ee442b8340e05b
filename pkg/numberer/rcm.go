package numberer

import (
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
)

// GraphNumberer orders the vertices of a dof-group graph. lastVertex, when non-negative, should
// come last in the ordering.
type GraphNumberer interface {
	Number(graph *datastructure.PartitionGraph, lastVertex int) ([]datastructure.Index, error)
}

// ReverseCuthillMcKee orders vertices breadth-first from a low-degree start, visiting neighbours
// by increasing degree, and reverses the result to reduce the profile of the assembled system.
type ReverseCuthillMcKee struct{}

func NewReverseCuthillMcKee() *ReverseCuthillMcKee {
	return &ReverseCuthillMcKee{}
}

func (r *ReverseCuthillMcKee) Number(graph *datastructure.PartitionGraph, lastVertex int) ([]datastructure.Index, error) {
	ids := graph.GetVertexIDs()
	visited := make(map[datastructure.Index]bool, len(ids))
	order := make([]datastructure.Index, 0, len(ids))
	scale := float64(graph.NextID())

	// rank orders by degree, then by id
	rank := func(u datastructure.Index) float64 {
		v, _ := graph.GetVertex(u)
		return float64(v.GetDegree())*scale + float64(u)
	}

	starts := datastructure.NewMinHeap[datastructure.Index]()
	if lastVertex >= 0 && graph.HasVertex(datastructure.Index(lastVertex)) {
		// the hint starts the first sweep so that reversal puts it at the end
		order = r.sweep(graph, datastructure.Index(lastVertex), visited, order, rank)
	}
	for _, u := range ids {
		if !visited[u] {
			starts.Insert(datastructure.NewPriorityQueueNode(rank(u), u))
		}
	}
	for starts.Size() > 0 {
		node, err := starts.ExtractMin()
		if err != nil {
			return nil, err
		}
		if visited[node.GetItem()] {
			continue
		}
		order = r.sweep(graph, node.GetItem(), visited, order, rank)
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

func (r *ReverseCuthillMcKee) sweep(graph *datastructure.PartitionGraph, start datastructure.Index,
	visited map[datastructure.Index]bool, order []datastructure.Index, rank func(datastructure.Index) float64) []datastructure.Index {
	queue := []datastructure.Index{start}
	visited[start] = true
	next := datastructure.NewMinHeap[datastructure.Index]()
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)

		v, _ := graph.GetVertex(u)
		v.ForEachNeighbor(func(w datastructure.Index) {
			if !visited[w] {
				visited[w] = true
				next.Insert(datastructure.NewPriorityQueueNode(rank(w), w))
			}
		})
		for next.Size() > 0 {
			node, _ := next.ExtractMin()
			queue = append(queue, node.GetItem())
		}
	}
	return order
}
