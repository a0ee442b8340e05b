package model

// SPConstraint fixes one dof of a node to a prescribed value.
type SPConstraint struct {
	tag     int
	nodeTag int
	dof     int
	value   float64
}

func NewSPConstraint(tag, nodeTag, dof int, value float64) *SPConstraint {
	return &SPConstraint{tag: tag, nodeTag: nodeTag, dof: dof, value: value}
}

func (sp *SPConstraint) GetTag() int {
	return sp.tag
}

func (sp *SPConstraint) GetNodeTag() int {
	return sp.nodeTag
}

func (sp *SPConstraint) GetDOF() int {
	return sp.dof
}

func (sp *SPConstraint) GetValue() float64 {
	return sp.value
}

func (sp *SPConstraint) Clone() *SPConstraint {
	c := *sp
	return &c
}

// MPConstraint ties the constrained dofs of one node to the retained dofs of one or more nodes.
// constrainedDOFs[i] is paired with retainedDOFs[i] on every retained node.
type MPConstraint struct {
	tag                int
	retainedNodeTags   []int
	constrainedNodeTag int
	constrainedDOFs    []int
	retainedDOFs       []int
}

func NewMPConstraint(tag int, retainedNodeTags []int, constrainedNodeTag int, constrainedDOFs, retainedDOFs []int) *MPConstraint {
	return &MPConstraint{
		tag:                tag,
		retainedNodeTags:   append([]int(nil), retainedNodeTags...),
		constrainedNodeTag: constrainedNodeTag,
		constrainedDOFs:    append([]int(nil), constrainedDOFs...),
		retainedDOFs:       append([]int(nil), retainedDOFs...),
	}
}

func (mp *MPConstraint) GetTag() int {
	return mp.tag
}

func (mp *MPConstraint) GetRetainedNodeTags() []int {
	return mp.retainedNodeTags
}

func (mp *MPConstraint) GetConstrainedNodeTag() int {
	return mp.constrainedNodeTag
}

func (mp *MPConstraint) GetConstrainedDOFs() []int {
	return mp.constrainedDOFs
}

func (mp *MPConstraint) GetRetainedDOFs() []int {
	return mp.retainedDOFs
}

// GetNodeTags returns the constrained node followed by the retained nodes.
func (mp *MPConstraint) GetNodeTags() []int {
	return append([]int{mp.constrainedNodeTag}, mp.retainedNodeTags...)
}

func (mp *MPConstraint) Clone() *MPConstraint {
	return NewMPConstraint(mp.tag, mp.retainedNodeTags, mp.constrainedNodeTag, mp.constrainedDOFs, mp.retainedDOFs)
}
