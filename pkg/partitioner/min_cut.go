package partitioner

// MinCut is the result of a max flow over a flow network. Vertices are the network's local
// indices.
type MinCut struct {
	flags                  []bool // true if the vertex is on the source side, partition one, else partition two
	numNodesInPartitionTwo int
	numberOfMinCutEdges    int
}

func NewMinCut(numberOfVertices int) *MinCut {
	return &MinCut{
		flags: make([]bool, numberOfVertices),
	}
}

func (mc *MinCut) SetFlag(u int, flag bool) {
	mc.flags[u] = flag
}

func (mc *MinCut) GetFlag(u int) bool {
	return mc.flags[u]
}

func (mc *MinCut) GetNumNodesInPartitionTwo() int {
	return mc.numNodesInPartitionTwo
}

func (mc *MinCut) incrementNumNodesInPartitionTwo() {
	mc.numNodesInPartitionTwo++
}

func (mc *MinCut) GetNumberOfMinCutEdges() int {
	return mc.numberOfMinCutEdges
}

func (mc *MinCut) setNumberofMinCutEdges(n int) {
	mc.numberOfMinCutEdges = n
}
