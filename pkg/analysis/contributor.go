package analysis

import (
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/model"
)

// EquationContributor adds terms to the equations of the dof groups it touches.
type EquationContributor interface {
	GetTag() int
	GetDOFGroupTags() []datastructure.Index
}

// FEElement contributes the stiffness of one element.
type FEElement struct {
	element   *model.Element
	dofGroups []datastructure.Index
}

var _ EquationContributor = (*FEElement)(nil)

func (e *FEElement) GetTag() int {
	return e.element.GetTag()
}

func (e *FEElement) GetDOFGroupTags() []datastructure.Index {
	return e.dofGroups
}

func (e *FEElement) GetElement() *model.Element {
	return e.element
}

// PenaltyMPElement enforces a multi-point constraint with a penalty stiffness.
type PenaltyMPElement struct {
	constraint *model.MPConstraint
	penalty    float64
	dofGroups  []datastructure.Index
}

var _ EquationContributor = (*PenaltyMPElement)(nil)

func (e *PenaltyMPElement) GetTag() int {
	return e.constraint.GetTag()
}

func (e *PenaltyMPElement) GetDOFGroupTags() []datastructure.Index {
	return e.dofGroups
}

func (e *PenaltyMPElement) GetConstraint() *model.MPConstraint {
	return e.constraint
}

func (e *PenaltyMPElement) GetPenalty() float64 {
	return e.penalty
}
