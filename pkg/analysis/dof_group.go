package analysis

import (
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/model"
)

// DOFGroup holds the equation numbers of one node's degrees of freedom. marks keeps the state a
// slot starts each numbering pass in (EQN_UNASSIGNED, EQN_FIXED or EQN_NUMBER_LAST).
type DOFGroup struct {
	tag            datastructure.Index
	nodeTag        int
	marks          []int
	eqnIDs         []int
	transformation bool
	spConstraints  []*model.SPConstraint
}

func newDOFGroup(tag datastructure.Index, nodeTag, numDOF int) *DOFGroup {
	g := &DOFGroup{
		tag:           tag,
		nodeTag:       nodeTag,
		marks:         make([]int, numDOF),
		eqnIDs:        make([]int, numDOF),
		spConstraints: make([]*model.SPConstraint, numDOF),
	}
	for i := range g.marks {
		g.marks[i] = pkg.EQN_UNASSIGNED
		g.eqnIDs[i] = pkg.EQN_UNASSIGNED
	}
	return g
}

func (g *DOFGroup) GetTag() datastructure.Index {
	return g.tag
}

func (g *DOFGroup) GetNodeTag() int {
	return g.nodeTag
}

func (g *DOFGroup) GetNumDOF() int {
	return len(g.eqnIDs)
}

// IsTransformation reports whether single-point constraints eliminate some of the dofs.
func (g *DOFGroup) IsTransformation() bool {
	return g.transformation
}

// GetSPConstraint returns the constraint fixing dof, if any.
func (g *DOFGroup) GetSPConstraint(dof int) (*model.SPConstraint, bool) {
	if dof < 0 || dof >= len(g.spConstraints) || g.spConstraints[dof] == nil {
		return nil, false
	}
	return g.spConstraints[dof], true
}

func (g *DOFGroup) GetEquationIDs() []int {
	ids := make([]int, len(g.eqnIDs))
	copy(ids, g.eqnIDs)
	return ids
}

func (g *DOFGroup) GetEquationID(dof int) int {
	return g.eqnIDs[dof]
}

// NumAssignable counts the slots that receive an equation number.
func (g *DOFGroup) NumAssignable() int {
	n := 0
	for _, m := range g.marks {
		if m != pkg.EQN_FIXED {
			n++
		}
	}
	return n
}

func (g *DOFGroup) hasNumberLast() bool {
	for _, m := range g.marks {
		if m == pkg.EQN_NUMBER_LAST {
			return true
		}
	}
	return false
}

func (g *DOFGroup) fix(sp *model.SPConstraint) {
	g.transformation = true
	g.spConstraints[sp.GetDOF()] = sp
	g.marks[sp.GetDOF()] = pkg.EQN_FIXED
	g.eqnIDs[sp.GetDOF()] = pkg.EQN_FIXED
}

// markLast flags every free slot to be numbered last and returns how many were flagged.
func (g *DOFGroup) markLast() int {
	n := 0
	for i, m := range g.marks {
		if m == pkg.EQN_UNASSIGNED {
			g.marks[i] = pkg.EQN_NUMBER_LAST
			g.eqnIDs[i] = pkg.EQN_NUMBER_LAST
			n++
		}
	}
	return n
}

func (g *DOFGroup) reset() {
	copy(g.eqnIDs, g.marks)
}

// assignFrom numbers the slots still waiting for a number consecutively from offset and returns
// the next free number.
func (g *DOFGroup) assignFrom(offset int) int {
	next := offset
	for i, id := range g.eqnIDs {
		if id == pkg.EQN_UNASSIGNED || id == pkg.EQN_NUMBER_LAST {
			g.eqnIDs[i] = next
			next++
		}
	}
	return next
}
