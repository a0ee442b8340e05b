package partitioner

import (
	"fmt"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/model"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type nodalLoadRef struct {
	patternTag int
	load       *model.NodalLoad
}

// DomainPartitioner splits the main collection of a Domain into partitions and keeps nodes,
// elements, constraints and loads consistent while elements later move between partitions.
type DomainPartitioner struct {
	domain           *model.Domain
	graphPartitioner GraphPartitioner
	logger           *zap.Logger

	graph      *datastructure.PartitionGraph // element graph, referenceId = element tag
	boundaries map[int]*datastructure.BoundaryGraph
	locations  *datastructure.NodeLocations
	refCounts  map[int]map[int]int // partition -> node tag -> number of elements referencing the node

	nodes           map[int]*model.Node
	patterns        map[int]*model.LoadPattern
	spByNode        map[int][]*model.SPConstraint
	mpConstraints   []*model.MPConstraint
	mpByConstrained map[int][]*model.MPConstraint
	loadsByNode     map[int][]nodalLoadRef

	numParts    int
	mainID      int
	partitioned bool
}

func NewDomainPartitioner(domain *model.Domain, graphPartitioner GraphPartitioner, logger *zap.Logger) *DomainPartitioner {
	return &DomainPartitioner{
		domain:           domain,
		graphPartitioner: graphPartitioner,
		logger:           logger,
	}
}

func (dp *DomainPartitioner) IsPartitioned() bool {
	return dp.partitioned
}

func (dp *DomainPartitioner) GetNumPartitions() int {
	return dp.numParts
}

func (dp *DomainPartitioner) GetMainPartitionID() int {
	return dp.mainID
}

func (dp *DomainPartitioner) GetElementGraph() *datastructure.PartitionGraph {
	return dp.graph
}

func (dp *DomainPartitioner) GetNodeLocation(nodeTag int) (*datastructure.NodeLocation, bool) {
	if dp.locations == nil {
		return nil, false
	}
	return dp.locations.Get(nodeTag)
}

func (dp *DomainPartitioner) GetBoundary(partition int) (*datastructure.BoundaryGraph, error) {
	if err := dp.checkPartition(partition); err != nil {
		return nil, err
	}
	return dp.boundaries[partition], nil
}

// GetPartitionIDs returns 1..numParts, the main partition included when there is one.
func (dp *DomainPartitioner) GetPartitionIDs() []int {
	ids := make([]int, 0, dp.numParts)
	for p := pkg.FIRST_PARTITION_ID; p < pkg.FIRST_PARTITION_ID+dp.numParts; p++ {
		ids = append(ids, p)
	}
	return ids
}

// GetCollection resolves a partition id to the subdomain holding its objects.
func (dp *DomainPartitioner) GetCollection(partition int) (*model.Subdomain, error) {
	if err := dp.checkPartition(partition); err != nil {
		return nil, err
	}
	return dp.collection(partition), nil
}

/*
Partition splits the main collection into numParts partitions.

(a) validate partitions, (b) build the element graph, (c) color it with the graph partitioner,
(d)-(e) build node locations from element references, (f) propagate constrained node locations onto
retained nodes, then commit: (g) nodes, (h) elements, (i) constraints and loads, (j) notify.
Nothing is moved before every check of (a)-(f) has passed.
*/
func (dp *DomainPartitioner) Partition(numParts, mainPartitionID int) error {
	if dp.partitioned {
		return fmt.Errorf("%w: domain already partitioned", pkg.ErrPartitioner)
	}
	if numParts < 1 {
		return fmt.Errorf("%w: number of partitions must be positive, got %d", pkg.ErrPartitioner, numParts)
	}
	if mainPartitionID != pkg.NO_MAIN_PARTITION &&
		(mainPartitionID < pkg.FIRST_PARTITION_ID || mainPartitionID >= pkg.FIRST_PARTITION_ID+numParts) {
		return fmt.Errorf("main partition %d outside [1, %d]: %w", mainPartitionID, numParts, pkg.ErrUnknownPartition)
	}

	for p := pkg.FIRST_PARTITION_ID; p < pkg.FIRST_PARTITION_ID+numParts; p++ {
		if p == mainPartitionID {
			continue
		}
		sub, err := dp.domain.GetPartition(p)
		if err != nil {
			return err
		}
		if !sub.IsEmpty() {
			return fmt.Errorf("%w: partition %d is not empty", pkg.ErrPartitioner, p)
		}
	}

	main := dp.domain.GetMain()
	if err := validateReferences(main); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrPartitioner, err)
	}

	graph, err := buildElementGraph(main)
	if err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrPartitioner, err)
	}

	if err := dp.graphPartitioner.Partition(graph, numParts); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrPartitioner, err)
	}
	var colorErr error
	graph.ForEachVertices(func(v *datastructure.PartitionVertex) {
		if v.GetColor() < pkg.FIRST_PARTITION_ID || v.GetColor() >= pkg.FIRST_PARTITION_ID+numParts {
			colorErr = multierr.Append(colorErr, fmt.Errorf("element %d colored %d", v.GetReferenceID(), v.GetColor()))
		}
	})
	if colorErr != nil {
		return fmt.Errorf("%w: invalid coloring: %v", pkg.ErrPartitioner, colorErr)
	}

	// everything below only touches state owned by the partitioner until the commit
	dp.graph = graph
	dp.numParts = numParts
	dp.mainID = mainPartitionID
	dp.indexModel(main)

	dp.refCounts = make(map[int]map[int]int)
	for _, p := range dp.GetPartitionIDs() {
		dp.refCounts[p] = make(map[int]int)
	}
	graph.ForEachVertices(func(v *datastructure.PartitionVertex) {
		e, _ := main.GetElement(v.GetReferenceID())
		for _, n := range e.GetNodeTags() {
			dp.refCounts[v.GetColor()][n]++
		}
	})

	dp.locations = datastructure.NewNodeLocations()
	allNodes := make(map[int]struct{}, len(dp.nodes))
	for tag := range dp.nodes {
		allNodes[tag] = struct{}{}
	}
	dp.computeLocations(allNodes)

	if err := dp.commit(main, allNodes); err != nil {
		return fmt.Errorf("%w: commit: %v", pkg.ErrPartitioner, err)
	}

	dp.boundaries = make(map[int]*datastructure.BoundaryGraph, numParts)
	for _, p := range dp.GetPartitionIDs() {
		b := datastructure.NewBoundaryGraph(graph, p)
		b.Build()
		dp.boundaries[p] = b
	}
	dp.partitioned = true

	for _, p := range dp.GetPartitionIDs() {
		dp.collection(p).DomainChange()
	}

	dp.logger.Sugar().Infof("partitioned %d elements and %d nodes into %d partitions", graph.NumberOfVertices(), len(dp.nodes), numParts)
	for _, p := range dp.GetPartitionIDs() {
		sub := dp.collection(p)
		dp.logger.Debug("partition populated",
			zap.Int("partition", p),
			zap.Int("elements", sub.NumberOfElements()),
			zap.Int("nodes", sub.NumberOfNodes()),
			zap.Int("externalNodes", sub.NumberOfExternalNodes()),
			zap.Int("boundary", dp.boundaries[p].NumberOfVertices()))
	}
	return nil
}

func validateReferences(main *model.Subdomain) error {
	var err error
	main.ForEachElement(func(e *model.Element) {
		for _, n := range e.GetNodeTags() {
			if !main.HasOwnedNode(n) {
				err = multierr.Append(err, fmt.Errorf("element %d references missing node %d", e.GetTag(), n))
			}
		}
	})
	main.ForEachSPConstraint(func(sp *model.SPConstraint) {
		if !main.HasOwnedNode(sp.GetNodeTag()) {
			err = multierr.Append(err, fmt.Errorf("sp constraint %d references missing node %d", sp.GetTag(), sp.GetNodeTag()))
		}
	})
	main.ForEachMPConstraint(func(mp *model.MPConstraint) {
		for _, n := range mp.GetNodeTags() {
			if !main.HasOwnedNode(n) {
				err = multierr.Append(err, fmt.Errorf("mp constraint %d references missing node %d", mp.GetTag(), n))
			}
		}
	})
	main.ForEachLoadPattern(func(p *model.LoadPattern) {
		p.ForEachNodalLoad(func(l *model.NodalLoad) {
			if !main.HasOwnedNode(l.GetNodeTag()) {
				err = multierr.Append(err, fmt.Errorf("nodal load %d of pattern %d references missing node %d", l.GetTag(), p.GetTag(), l.GetNodeTag()))
			}
		})
	})
	return err
}

// buildElementGraph creates one vertex per element (weight = cost, centroid = mean node
// coordinate) and connects elements sharing a node.
func buildElementGraph(main *model.Subdomain) (*datastructure.PartitionGraph, error) {
	graph := datastructure.NewPartitionGraph()
	elementsOfNode := make(map[int][]datastructure.Index)
	id := datastructure.Index(0)

	var err error
	main.ForEachElement(func(e *model.Element) {
		v := datastructure.NewPartitionVertex(id, e.GetTag(), e.GetCost(), pkg.INVALID_PARTITION_ID)
		centroid := r3.Vector{}
		for _, n := range e.GetNodeTags() {
			node, _ := main.GetNode(n)
			centroid = centroid.Add(node.GetCoordinate())
			elementsOfNode[n] = append(elementsOfNode[n], id)
		}
		if len(e.GetNodeTags()) > 0 {
			centroid = centroid.Mul(1 / float64(len(e.GetNodeTags())))
		}
		v.SetCentroid(centroid)
		err = multierr.Append(err, graph.AddVertex(v))
		id++
	})
	if err != nil {
		return nil, err
	}

	for _, elements := range elementsOfNode {
		for i := 0; i < len(elements); i++ {
			for j := i + 1; j < len(elements); j++ {
				if err := graph.AddEdge(elements[i], elements[j]); err != nil {
					return nil, err
				}
			}
		}
	}
	return graph, nil
}

// indexModel snapshots the canonical nodes, constraints and loads of the main collection.
func (dp *DomainPartitioner) indexModel(main *model.Subdomain) {
	dp.nodes = make(map[int]*model.Node)
	dp.patterns = make(map[int]*model.LoadPattern)
	dp.spByNode = make(map[int][]*model.SPConstraint)
	dp.mpConstraints = make([]*model.MPConstraint, 0)
	dp.mpByConstrained = make(map[int][]*model.MPConstraint)
	dp.loadsByNode = make(map[int][]nodalLoadRef)

	main.ForEachNode(func(n *model.Node) {
		dp.nodes[n.GetTag()] = n
	})
	main.ForEachSPConstraint(func(sp *model.SPConstraint) {
		dp.spByNode[sp.GetNodeTag()] = append(dp.spByNode[sp.GetNodeTag()], sp)
	})
	main.ForEachMPConstraint(func(mp *model.MPConstraint) {
		dp.mpConstraints = append(dp.mpConstraints, mp)
		dp.mpByConstrained[mp.GetConstrainedNodeTag()] = append(dp.mpByConstrained[mp.GetConstrainedNodeTag()], mp)
	})
	main.ForEachLoadPattern(func(p *model.LoadPattern) {
		dp.patterns[p.GetTag()] = p
		p.ForEachNodalLoad(func(l *model.NodalLoad) {
			dp.loadsByNode[l.GetNodeTag()] = append(dp.loadsByNode[l.GetNodeTag()], nodalLoadRef{patternTag: p.GetTag(), load: l})
		})
	})
}

func (dp *DomainPartitioner) commit(main *model.Subdomain, allNodes map[int]struct{}) error {
	tags := sortedTags(allNodes)
	for _, tag := range tags {
		if err := dp.placeNode(tag); err != nil {
			return err
		}
	}

	var err error
	for _, v := range dp.graph.GetVertexIDs() {
		vertex, _ := dp.graph.GetVertex(v)
		color := vertex.GetColor()
		if color == dp.mainID {
			continue
		}
		e, ok := main.RemoveElement(vertex.GetReferenceID())
		if !ok {
			err = multierr.Append(err, fmt.Errorf("element %d vanished from main collection", vertex.GetReferenceID()))
			continue
		}
		err = multierr.Append(err, dp.collection(color).AddElement(e))
	}
	if err != nil {
		return err
	}

	for _, tag := range tags {
		if err := dp.placeAttachments(tag); err != nil {
			return err
		}
	}
	return nil
}

// computeLocations recomputes the location of every node in affected: partitions of the
// elements referencing it (or the orphan partition), grown by the locations of nodes it retains for.
func (dp *DomainPartitioner) computeLocations(affected map[int]struct{}) {
	for tag := range affected {
		loc := dp.locations.Create(tag)
		loc.Clear()
		for p, counts := range dp.refCounts {
			if counts[tag] > 0 {
				loc.Add(p)
			}
		}
		if loc.Size() == 0 {
			loc.Add(dp.orphanPartition())
		}
	}

	for changed := true; changed; {
		changed = false
		for _, mp := range dp.mpConstraints {
			constrained := dp.locations.Create(mp.GetConstrainedNodeTag())
			for _, r := range mp.GetRetainedNodeTags() {
				if dp.locations.Create(r).Union(constrained) {
					changed = true
				}
			}
		}
	}

}

// orphanPartition receives nodes no element references.
func (dp *DomainPartitioner) orphanPartition() int {
	if dp.mainID != pkg.NO_MAIN_PARTITION {
		return dp.mainID
	}
	return pkg.FIRST_PARTITION_ID
}

// owner is the main partition when the node lives there, else the lowest partition id.
func (dp *DomainPartitioner) owner(loc *datastructure.NodeLocation) int {
	if dp.mainID != pkg.NO_MAIN_PARTITION && loc.Contains(dp.mainID) {
		return dp.mainID
	}
	parts := loc.GetPartitions()
	if len(parts) == 0 {
		return pkg.INVALID_PARTITION_ID
	}
	return parts[0]
}

// mainKeeps reports whether the main collection holds its own copy of an object at loc.
// Without a main partition the main collection is the registry of shared objects.
func (dp *DomainPartitioner) mainKeeps(loc *datastructure.NodeLocation) bool {
	if dp.mainID != pkg.NO_MAIN_PARTITION {
		return loc.Contains(dp.mainID)
	}
	return loc.IsShared()
}

func (dp *DomainPartitioner) collection(partition int) *model.Subdomain {
	if partition == dp.mainID && dp.mainID != pkg.NO_MAIN_PARTITION {
		return dp.domain.GetMain()
	}
	sub, _ := dp.domain.GetPartition(partition)
	return sub
}

// placeNode makes the node present as owned copy in its owner and as external copy in every other
// partition of its location, and absent everywhere else.
func (dp *DomainPartitioner) placeNode(tag int) error {
	loc, _ := dp.locations.Get(tag)
	canonical := dp.nodes[tag]
	owner := dp.owner(loc)

	main := dp.domain.GetMain()
	keep := dp.mainKeeps(loc)
	if keep && !main.HasOwnedNode(tag) {
		if err := main.AddNode(canonical); err != nil {
			return err
		}
	} else if !keep && main.HasOwnedNode(tag) {
		main.RemoveNode(tag)
	}

	for _, p := range dp.GetPartitionIDs() {
		if p == dp.mainID {
			continue
		}
		sub := dp.collection(p)
		wantOwned := p == owner
		wantExternal := loc.Contains(p) && !wantOwned

		if sub.HasOwnedNode(tag) && !wantOwned {
			sub.RemoveNode(tag)
		}
		if sub.HasExternalNode(tag) && !wantExternal {
			sub.RemoveExternalNode(tag)
		}
		if wantOwned && !sub.HasOwnedNode(tag) {
			if err := sub.AddNode(canonical.Clone()); err != nil {
				return err
			}
		}
		if wantExternal && !sub.HasExternalNode(tag) {
			if err := sub.AddExternalNode(canonical.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

// placeAttachments places the sp constraints and nodal loads of a node and the mp constraints
// it is the constrained node of.
func (dp *DomainPartitioner) placeAttachments(tag int) error {
	loc, _ := dp.locations.Get(tag)
	var err error

	for _, sp := range dp.spByNode[tag] {
		sp := sp
		err = multierr.Append(err, dp.placeByLocation(loc,
			func(s *model.Subdomain) bool {
				_, ok := s.GetSPConstraint(sp.GetTag())
				return ok
			},
			func(s *model.Subdomain, isMain bool) error {
				if isMain {
					return s.AddSPConstraint(sp)
				}
				return s.AddSPConstraint(sp.Clone())
			},
			func(s *model.Subdomain) { s.RemoveSPConstraint(sp.GetTag()) }))
	}

	for _, mp := range dp.mpByConstrained[tag] {
		mp := mp
		err = multierr.Append(err, dp.placeByLocation(loc,
			func(s *model.Subdomain) bool {
				_, ok := s.GetMPConstraint(mp.GetTag())
				return ok
			},
			func(s *model.Subdomain, isMain bool) error {
				if isMain {
					return s.AddMPConstraint(mp)
				}
				return s.AddMPConstraint(mp.Clone())
			},
			func(s *model.Subdomain) { s.RemoveMPConstraint(mp.GetTag()) }))
	}

	for _, ref := range dp.loadsByNode[tag] {
		ref := ref
		err = multierr.Append(err, dp.placeByLocation(loc,
			func(s *model.Subdomain) bool {
				pattern, ok := s.GetLoadPattern(ref.patternTag)
				if !ok {
					return false
				}
				_, ok = pattern.GetNodalLoad(ref.load.GetTag())
				return ok
			},
			func(s *model.Subdomain, isMain bool) error {
				pattern, err := dp.ensurePattern(s, ref.patternTag)
				if err != nil {
					return err
				}
				load := ref.load
				if !isMain {
					load = load.Clone()
				}
				if !pattern.AddNodalLoad(load) {
					return fmt.Errorf("nodal load %d already in pattern %d", load.GetTag(), ref.patternTag)
				}
				return nil
			},
			func(s *model.Subdomain) {
				if pattern, ok := s.GetLoadPattern(ref.patternTag); ok {
					pattern.RemoveNodalLoad(ref.load.GetTag())
				}
			}))
	}
	return err
}

func (dp *DomainPartitioner) placeByLocation(loc *datastructure.NodeLocation, has func(s *model.Subdomain) bool,
	add func(s *model.Subdomain, isMain bool) error, remove func(s *model.Subdomain)) error {
	main := dp.domain.GetMain()
	keep := dp.mainKeeps(loc)
	if keep && !has(main) {
		if err := add(main, true); err != nil {
			return err
		}
	} else if !keep && has(main) {
		remove(main)
	}

	for _, p := range dp.GetPartitionIDs() {
		if p == dp.mainID {
			continue
		}
		sub := dp.collection(p)
		want := loc.Contains(p)
		if want && !has(sub) {
			if err := add(sub, false); err != nil {
				return err
			}
		} else if !want && has(sub) {
			remove(sub)
		}
	}
	return nil
}

func (dp *DomainPartitioner) ensurePattern(s *model.Subdomain, tag int) (*model.LoadPattern, error) {
	if pattern, ok := s.GetLoadPattern(tag); ok {
		return pattern, nil
	}
	canonical, ok := dp.patterns[tag]
	if !ok {
		return nil, fmt.Errorf("unknown load pattern %d", tag)
	}
	pattern := canonical.CloneEmpty()
	if err := s.AddLoadPattern(pattern); err != nil {
		return nil, err
	}
	return pattern, nil
}

func (dp *DomainPartitioner) checkPartition(partition int) error {
	if !dp.partitioned {
		return pkg.ErrNotYetPartitioned
	}
	if partition < pkg.FIRST_PARTITION_ID || partition >= pkg.FIRST_PARTITION_ID+dp.numParts {
		return fmt.Errorf("partition %d: %w", partition, pkg.ErrUnknownPartition)
	}
	return nil
}

func sortedTags(set map[int]struct{}) []int {
	tags := make([]int, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Ints(tags)
	return tags
}
