package datastructure

import "sort"

// NodeLocation records which partitions reference a node. A node with more than one partition
// is shared and lives as an external copy in every partition but its owner.
type NodeLocation struct {
	nodeTag    int
	partitions map[int]struct{}
}

func NewNodeLocation(nodeTag int) *NodeLocation {
	return &NodeLocation{
		nodeTag:    nodeTag,
		partitions: make(map[int]struct{}),
	}
}

func (l *NodeLocation) GetNodeTag() int {
	return l.nodeTag
}

func (l *NodeLocation) Add(partition int) bool {
	if l.Contains(partition) {
		return false
	}
	l.partitions[partition] = struct{}{}
	return true
}

func (l *NodeLocation) Remove(partition int) bool {
	if !l.Contains(partition) {
		return false
	}
	delete(l.partitions, partition)
	return true
}

func (l *NodeLocation) Contains(partition int) bool {
	_, ok := l.partitions[partition]
	return ok
}

func (l *NodeLocation) Size() int {
	return len(l.partitions)
}

func (l *NodeLocation) IsShared() bool {
	return len(l.partitions) > 1
}

func (l *NodeLocation) GetPartitions() []int {
	parts := make([]int, 0, len(l.partitions))
	for p := range l.partitions {
		parts = append(parts, p)
	}
	sort.Ints(parts)
	return parts
}

// Union adds every partition of other and reports whether the set grew.
func (l *NodeLocation) Union(other *NodeLocation) bool {
	changed := false
	for p := range other.partitions {
		if l.Add(p) {
			changed = true
		}
	}
	return changed
}

// IsSupersetOf reports whether every partition of other is also in l.
func (l *NodeLocation) IsSupersetOf(other *NodeLocation) bool {
	for p := range other.partitions {
		if !l.Contains(p) {
			return false
		}
	}
	return true
}

func (l *NodeLocation) Clear() {
	l.partitions = make(map[int]struct{})
}

type NodeLocations struct {
	locations map[int]*NodeLocation
}

func NewNodeLocations() *NodeLocations {
	return &NodeLocations{locations: make(map[int]*NodeLocation)}
}

// Create returns the location of nodeTag, creating an empty one the first time.
func (ls *NodeLocations) Create(nodeTag int) *NodeLocation {
	if l, ok := ls.locations[nodeTag]; ok {
		return l
	}
	l := NewNodeLocation(nodeTag)
	ls.locations[nodeTag] = l
	return l
}

func (ls *NodeLocations) Get(nodeTag int) (*NodeLocation, bool) {
	l, ok := ls.locations[nodeTag]
	return l, ok
}

func (ls *NodeLocations) Len() int {
	return len(ls.locations)
}

func (ls *NodeLocations) GetNodeTags() []int {
	tags := make([]int, 0, len(ls.locations))
	for tag := range ls.locations {
		tags = append(tags, tag)
	}
	sort.Ints(tags)
	return tags
}

func (ls *NodeLocations) ForEach(handle func(l *NodeLocation)) {
	for _, tag := range ls.GetNodeTags() {
		handle(ls.locations[tag])
	}
}
