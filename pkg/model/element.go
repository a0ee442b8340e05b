package model

// Element carries what the decomposition layer needs from an element: its connectivity, a load
// metric and the diagonal of its initial stiffness matrix (node-major, numDOF entries per node).
type Element struct {
	tag           int
	nodeTags      []int
	stiffnessDiag []float64
	cost          float64
}

func NewElement(tag int, nodeTags []int, stiffnessDiag []float64, cost float64) *Element {
	nodes := make([]int, len(nodeTags))
	copy(nodes, nodeTags)
	diag := make([]float64, len(stiffnessDiag))
	copy(diag, stiffnessDiag)
	return &Element{tag: tag, nodeTags: nodes, stiffnessDiag: diag, cost: cost}
}

func (e *Element) GetTag() int {
	return e.tag
}

func (e *Element) GetNodeTags() []int {
	return e.nodeTags
}

func (e *Element) GetInitialStiffnessDiagonal() []float64 {
	return e.stiffnessDiag
}

func (e *Element) GetCost() float64 {
	return e.cost
}

func (e *Element) SetCost(cost float64) {
	e.cost = cost
}
