package partitioner

import (
	"fmt"
	"sort"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"go.uber.org/zap"
)

// MoveResult lists the element-graph vertices a rebalancing operator moved and their total weight.
type MoveResult struct {
	Moved  []datastructure.Index
	Weight float64
}

func (r MoveResult) NumMoved() int {
	return len(r.Moved)
}

func (r *MoveResult) merge(other MoveResult) {
	r.Moved = append(r.Moved, other.Moved...)
	r.Weight += other.Weight
}

// SwapVertex moves the element behind vertex u from partition from to partition to. With
// requireAdjacentOnly set the move is refused when u touches a third partition.
func (dp *DomainPartitioner) SwapVertex(from, to int, u datastructure.Index, requireAdjacentOnly bool) (MoveResult, error) {
	if err := dp.checkPair(from, to); err != nil {
		return MoveResult{}, err
	}
	ok, err := dp.canSwap(from, to, u, requireAdjacentOnly)
	if err != nil || !ok {
		return MoveResult{}, err
	}
	return dp.moveVertices(from, to, []datastructure.Index{u}), nil
}

// SwapBoundary moves, as one batch, every vertex on from's boundary that is adjacent to to.
func (dp *DomainPartitioner) SwapBoundary(from, to int, requireAdjacentOnly bool) (MoveResult, error) {
	if err := dp.checkPair(from, to); err != nil {
		return MoveResult{}, err
	}
	if from == to {
		return MoveResult{}, nil
	}

	candidates := make([]datastructure.Index, 0)
	for _, u := range dp.boundaries[from].GetVertexIDs() {
		counts, err := dp.graph.NeighborColorCounts(u)
		if err != nil {
			return MoveResult{}, err
		}
		if counts[to] == 0 {
			continue
		}
		ok, err := dp.canSwap(from, to, u, requireAdjacentOnly)
		if err != nil {
			return MoveResult{}, err
		}
		if ok {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return MoveResult{}, nil
	}
	return dp.moveVertices(from, to, candidates), nil
}

// ReleaseVertex moves u to the neighbouring partition it shares most edges with. With
// mustReleaseToLighter set the move only happens if that partition is empty or lighter than
// from by more than factorGreater, read from the weighted partition graph, which is kept current.
func (dp *DomainPartitioner) ReleaseVertex(from int, u datastructure.Index, weighted *datastructure.PartitionGraph,
	mustReleaseToLighter bool, factorGreater float64, requireAdjacentOnly bool) (MoveResult, error) {
	if err := dp.checkPartition(from); err != nil {
		return MoveResult{}, err
	}
	v, err := dp.graph.GetVertex(u)
	if err != nil {
		return MoveResult{}, err
	}
	if v.GetColor() != from {
		return MoveResult{}, nil
	}

	counts, err := dp.graph.NeighborColorCounts(u)
	if err != nil {
		return MoveResult{}, err
	}
	target := releaseTarget(from, counts)
	if target == pkg.INVALID_PARTITION_ID {
		return MoveResult{}, nil
	}

	if mustReleaseToLighter {
		fromWeight, err := partitionWeight(weighted, from)
		if err != nil {
			return MoveResult{}, err
		}
		targetWeight, err := partitionWeight(weighted, target)
		if err != nil {
			return MoveResult{}, err
		}
		if targetWeight != 0 && fromWeight/targetWeight <= factorGreater {
			return MoveResult{}, nil
		}
	}

	res, err := dp.SwapVertex(from, target, u, requireAdjacentOnly)
	if err != nil {
		return MoveResult{}, err
	}
	if res.NumMoved() > 0 && weighted != nil {
		if fv, err := weighted.GetVertex(datastructure.Index(from)); err == nil {
			fv.AddWeight(-res.Weight)
		}
		if tv, err := weighted.GetVertex(datastructure.Index(target)); err == nil {
			tv.AddWeight(res.Weight)
		}
	}
	return res, nil
}

// ReleaseBoundary calls ReleaseVertex on a snapshot of from's boundary.
func (dp *DomainPartitioner) ReleaseBoundary(from int, weighted *datastructure.PartitionGraph,
	mustReleaseToLighter bool, factorGreater float64, requireAdjacentOnly bool) (MoveResult, error) {
	if err := dp.checkPartition(from); err != nil {
		return MoveResult{}, err
	}
	total := MoveResult{}
	for _, u := range dp.boundaries[from].GetVertexIDs() {
		res, err := dp.ReleaseVertex(from, u, weighted, mustReleaseToLighter, factorGreater, requireAdjacentOnly)
		if err != nil {
			return total, err
		}
		total.merge(res)
	}
	return total, nil
}

// GetPartitionGraph builds the weighted partition graph: one vertex per partition (id and
// referenceId = partition id, weight = summed element weight), adjacent when an element edge is cut.
func (dp *DomainPartitioner) GetPartitionGraph() (*datastructure.PartitionGraph, error) {
	if !dp.partitioned {
		return nil, pkg.ErrNotYetPartitioned
	}
	weighted := datastructure.NewPartitionGraph()
	for _, p := range dp.GetPartitionIDs() {
		if err := weighted.AddVertex(datastructure.NewPartitionVertex(datastructure.Index(p), p, 0, p)); err != nil {
			return nil, err
		}
	}

	var err error
	dp.graph.ForEachVertices(func(v *datastructure.PartitionVertex) {
		pv, gerr := weighted.GetVertex(datastructure.Index(v.GetColor()))
		if gerr != nil {
			err = gerr
			return
		}
		pv.AddWeight(v.GetWeight())
		v.ForEachNeighbor(func(w datastructure.Index) {
			nv, _ := dp.graph.GetVertex(w)
			if nv.GetColor() != v.GetColor() {
				if aerr := weighted.AddEdge(datastructure.Index(v.GetColor()), datastructure.Index(nv.GetColor())); aerr != nil {
					err = aerr
				}
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return weighted, nil
}

func (dp *DomainPartitioner) checkPair(from, to int) error {
	if err := dp.checkPartition(from); err != nil {
		return err
	}
	return dp.checkPartition(to)
}

func (dp *DomainPartitioner) canSwap(from, to int, u datastructure.Index, requireAdjacentOnly bool) (bool, error) {
	v, err := dp.graph.GetVertex(u)
	if err != nil {
		return false, err
	}
	if from == to || v.GetColor() != from {
		return false, nil
	}
	if !requireAdjacentOnly {
		return true, nil
	}
	counts, err := dp.graph.NeighborColorCounts(u)
	if err != nil {
		return false, err
	}
	for color := range counts {
		if color != from && color != to {
			return false, nil
		}
	}
	return true, nil
}

// releaseTarget picks the neighbour partition with the most edges to u, lowest id on ties.
func releaseTarget(from int, counts map[int]int) int {
	colors := make([]int, 0, len(counts))
	for c := range counts {
		if c != from {
			colors = append(colors, c)
		}
	}
	sort.Ints(colors)
	target, best := pkg.INVALID_PARTITION_ID, 0
	for _, c := range colors {
		if counts[c] > best {
			target, best = c, counts[c]
		}
	}
	return target
}

func partitionWeight(weighted *datastructure.PartitionGraph, partition int) (float64, error) {
	if weighted == nil {
		return 0, fmt.Errorf("no weighted partition graph: %w", pkg.ErrUnknownVertex)
	}
	v, err := weighted.GetVertex(datastructure.Index(partition))
	if err != nil {
		return 0, fmt.Errorf("partition %d weight: %w", partition, err)
	}
	return v.GetWeight(), nil
}

// moveVertices moves the elements of ids from one partition to another, then re-places every node
// whose location may have changed along with its constraints and loads.
func (dp *DomainPartitioner) moveVertices(from, to int, ids []datastructure.Index) MoveResult {
	res := MoveResult{Moved: make([]datastructure.Index, 0, len(ids))}
	affected := make(map[int]struct{})
	src, dst := dp.collection(from), dp.collection(to)

	for _, u := range ids {
		v, err := dp.graph.GetVertex(u)
		if err != nil || v.GetColor() != from {
			continue
		}
		e, ok := src.RemoveElement(v.GetReferenceID())
		if !ok {
			dp.logger.Error("element missing from source partition",
				zap.Int("element", v.GetReferenceID()), zap.Int("partition", from))
			continue
		}
		if err := dst.AddElement(e); err != nil {
			dp.logger.Error("cannot add element to target partition", zap.Int("partition", to), zap.Error(err))
			continue
		}
		for _, n := range e.GetNodeTags() {
			dp.refCounts[from][n]--
			if dp.refCounts[from][n] <= 0 {
				delete(dp.refCounts[from], n)
			}
			dp.refCounts[to][n]++
			affected[n] = struct{}{}
		}

		v.SetColor(to)
		dp.graph.RefreshBoundaries(dp.boundaries, u, from)
		res.Moved = append(res.Moved, u)
		res.Weight += v.GetWeight()
	}
	if len(res.Moved) == 0 {
		return res
	}

	dp.relocate(affected)
	src.DomainChange()
	dst.DomainChange()

	dp.logger.Debug("moved elements",
		zap.Int("from", from), zap.Int("to", to),
		zap.Int("count", len(res.Moved)), zap.Float64("weight", res.Weight))
	return res
}

func (dp *DomainPartitioner) relocate(affected map[int]struct{}) {
	// retained nodes follow the constrained nodes they serve
	for grown := true; grown; {
		grown = false
		for _, mp := range dp.mpConstraints {
			if _, ok := affected[mp.GetConstrainedNodeTag()]; !ok {
				continue
			}
			for _, r := range mp.GetRetainedNodeTags() {
				if _, ok := affected[r]; !ok {
					affected[r] = struct{}{}
					grown = true
				}
			}
		}
	}

	dp.computeLocations(affected)
	tags := sortedTags(affected)
	for _, tag := range tags {
		if err := dp.placeNode(tag); err != nil {
			dp.logger.Error("cannot place node", zap.Int("node", tag), zap.Error(err))
		}
	}
	for _, tag := range tags {
		if err := dp.placeAttachments(tag); err != nil {
			dp.logger.Error("cannot place constraints of node", zap.Int("node", tag), zap.Error(err))
		}
	}
}
