package analysis

import (
	"fmt"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
)

// Model is the equation structure of one subdomain: its dof groups and contributors.
type Model struct {
	dofGroups    []*DOFGroup
	byNode       map[int]*DOFGroup
	elements     []*FEElement
	penalties    []*PenaltyMPElement
	contributors []EquationContributor
}

func NewModel() *Model {
	return &Model{byNode: make(map[int]*DOFGroup)}
}

func (m *Model) clear() {
	m.dofGroups = m.dofGroups[:0]
	m.byNode = make(map[int]*DOFGroup)
	m.elements = m.elements[:0]
	m.penalties = m.penalties[:0]
	m.contributors = m.contributors[:0]
}

func (m *Model) addDOFGroup(nodeTag, numDOF int) *DOFGroup {
	g := newDOFGroup(datastructure.Index(len(m.dofGroups)), nodeTag, numDOF)
	m.dofGroups = append(m.dofGroups, g)
	m.byNode[nodeTag] = g
	return g
}

func (m *Model) addElement(e *FEElement) {
	m.elements = append(m.elements, e)
	m.contributors = append(m.contributors, e)
}

func (m *Model) addPenalty(e *PenaltyMPElement) {
	m.penalties = append(m.penalties, e)
	m.contributors = append(m.contributors, e)
}

func (m *Model) NumDOFGroups() int {
	return len(m.dofGroups)
}

func (m *Model) GetDOFGroup(tag datastructure.Index) (*DOFGroup, error) {
	if int(tag) >= len(m.dofGroups) {
		return nil, fmt.Errorf("dof group %d: %w", tag, pkg.ErrUnknownDofGroup)
	}
	return m.dofGroups[tag], nil
}

func (m *Model) GetDOFGroupByNode(nodeTag int) (*DOFGroup, bool) {
	g, ok := m.byNode[nodeTag]
	return g, ok
}

func (m *Model) ForEachDOFGroup(handle func(g *DOFGroup)) {
	for _, g := range m.dofGroups {
		handle(g)
	}
}

func (m *Model) GetFEElements() []*FEElement {
	return m.elements
}

func (m *Model) GetPenaltyElements() []*PenaltyMPElement {
	return m.penalties
}

func (m *Model) ForEachContributor(handle func(c EquationContributor)) {
	for _, c := range m.contributors {
		handle(c)
	}
}

// GetDOFGroupGraph returns one vertex per dof group (id = dof group tag, referenceId = node tag,
// weight = assignable slots) with an edge between dof groups sharing a contributor.
func (m *Model) GetDOFGroupGraph() (*datastructure.PartitionGraph, error) {
	graph := datastructure.NewPartitionGraph()
	for _, g := range m.dofGroups {
		v := datastructure.NewPartitionVertex(g.tag, g.nodeTag, float64(g.NumAssignable()), pkg.INVALID_PARTITION_ID)
		if err := graph.AddVertex(v); err != nil {
			return nil, err
		}
	}
	for _, c := range m.contributors {
		tags := c.GetDOFGroupTags()
		for i := 0; i < len(tags); i++ {
			for j := i + 1; j < len(tags); j++ {
				if err := graph.AddEdge(tags[i], tags[j]); err != nil {
					return nil, err
				}
			}
		}
	}
	return graph, nil
}

// GetLastDOFGroupHint returns a dof group flagged to be numbered last.
func (m *Model) GetLastDOFGroupHint() (datastructure.Index, bool) {
	for _, g := range m.dofGroups {
		if g.hasNumberLast() {
			return g.tag, true
		}
	}
	return 0, false
}

// ResetNumbering drops every equation number, keeping fixed and number-last marks.
func (m *Model) ResetNumbering() {
	for _, g := range m.dofGroups {
		g.reset()
	}
}

// AssignFromOffset numbers the waiting slots of a dof group from offset and returns the next number.
func (m *Model) AssignFromOffset(tag datastructure.Index, offset int) (int, error) {
	g, err := m.GetDOFGroup(tag)
	if err != nil {
		return offset, err
	}
	return g.assignFrom(offset), nil
}

// NumEquations counts the slots that hold an equation number.
func (m *Model) NumEquations() int {
	n := 0
	for _, g := range m.dofGroups {
		for _, id := range g.eqnIDs {
			if id >= 0 {
				n++
			}
		}
	}
	return n
}
