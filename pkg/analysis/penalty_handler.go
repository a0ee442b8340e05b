package analysis

import (
	"fmt"
	"math"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/model"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ConstraintConflict reports a single-point constraint dropped because an earlier one already
// fixes the same dof.
type ConstraintConflict struct {
	NodeTag   int
	DOF       int
	Kept      *model.SPConstraint
	Discarded *model.SPConstraint
}

func (c ConstraintConflict) Error() string {
	return fmt.Sprintf("node %d dof %d: sp constraint %d (value %g) discarded, sp constraint %d (value %g) kept",
		c.NodeTag, c.DOF, c.Discarded.GetTag(), c.Discarded.GetValue(), c.Kept.GetTag(), c.Kept.GetValue())
}

func (c ConstraintConflict) Unwrap() error {
	return pkg.ErrConstraintConflict
}

type HandleResult struct {
	// NumNodesLastDOF counts the dofs flagged to be numbered last.
	NumNodesLastDOF int
	Conflicts       []ConstraintConflict
}

// ConflictError combines every conflict into one error, nil when there is none.
func (r HandleResult) ConflictError() error {
	var err error
	for _, c := range r.Conflicts {
		err = multierr.Append(err, c)
	}
	return err
}

type PenaltyOptions struct {
	Automatic bool
	// Value is the penalty used in manual mode and the fallback when no stiffness is known.
	Value       float64
	OrderOffset float64
}

// PenaltyConstraintHandler builds the equation structure of a subdomain: transformation dof
// groups for single-point constraints and penalty contributors for multi-point constraints.
type PenaltyConstraintHandler struct {
	opts      PenaltyOptions
	subdomain *model.Subdomain
	model     *Model
	logger    *zap.Logger
}

func NewPenaltyConstraintHandler(opts PenaltyOptions, logger *zap.Logger) *PenaltyConstraintHandler {
	if opts.Value <= 0 {
		opts.Value = pkg.DEFAULT_PENALTY_VALUE
	}
	return &PenaltyConstraintHandler{opts: opts, logger: logger}
}

func (h *PenaltyConstraintHandler) SetLinks(subdomain *model.Subdomain, m *Model) {
	h.subdomain = subdomain
	h.model = m
}

func (h *PenaltyConstraintHandler) Handle(nodesLast []int) (HandleResult, error) {
	res := HandleResult{}
	if h.subdomain == nil || h.model == nil {
		return res, pkg.ErrLinkNotSet
	}
	h.model.clear()

	var err error
	for _, tag := range h.subdomain.GetAllNodeTags() {
		node, _ := h.subdomain.GetNode(tag)
		h.model.addDOFGroup(tag, node.GetNumberDOF())
	}

	h.subdomain.ForEachSPConstraint(func(sp *model.SPConstraint) {
		g, ok := h.model.GetDOFGroupByNode(sp.GetNodeTag())
		if !ok {
			err = multierr.Append(err, fmt.Errorf("sp constraint %d: node %d not in subdomain %d", sp.GetTag(), sp.GetNodeTag(), h.subdomain.GetID()))
			return
		}
		if sp.GetDOF() < 0 || sp.GetDOF() >= g.GetNumDOF() {
			err = multierr.Append(err, fmt.Errorf("sp constraint %d: dof %d outside node %d", sp.GetTag(), sp.GetDOF(), sp.GetNodeTag()))
			return
		}
		if kept, ok := g.GetSPConstraint(sp.GetDOF()); ok {
			res.Conflicts = append(res.Conflicts, ConstraintConflict{NodeTag: sp.GetNodeTag(), DOF: sp.GetDOF(), Kept: kept, Discarded: sp})
			return
		}
		g.fix(sp)
	})

	for _, tag := range nodesLast {
		g, ok := h.model.GetDOFGroupByNode(tag)
		if !ok {
			continue
		}
		res.NumNodesLastDOF += g.markLast()
	}

	h.subdomain.ForEachElement(func(e *model.Element) {
		fe := &FEElement{element: e, dofGroups: make([]datastructure.Index, 0, len(e.GetNodeTags()))}
		for _, n := range e.GetNodeTags() {
			g, ok := h.model.GetDOFGroupByNode(n)
			if !ok {
				err = multierr.Append(err, fmt.Errorf("element %d: node %d not in subdomain %d", e.GetTag(), n, h.subdomain.GetID()))
				continue
			}
			fe.dofGroups = append(fe.dofGroups, g.GetTag())
		}
		h.model.addElement(fe)
	})

	var calibrated map[int]float64
	if h.opts.Automatic {
		calibrated = h.calibratePenalties()
	}
	h.subdomain.ForEachMPConstraint(func(mp *model.MPConstraint) {
		pe := &PenaltyMPElement{constraint: mp, penalty: h.opts.Value}
		if h.opts.Automatic {
			pe.penalty = 0
		}
		for _, n := range mp.GetNodeTags() {
			g, ok := h.model.GetDOFGroupByNode(n)
			if !ok {
				err = multierr.Append(err, fmt.Errorf("mp constraint %d: node %d not in subdomain %d", mp.GetTag(), n, h.subdomain.GetID()))
				continue
			}
			pe.dofGroups = append(pe.dofGroups, g.GetTag())
			if h.opts.Automatic {
				pe.penalty = math.Max(pe.penalty, calibrated[n])
			}
		}
		if pe.penalty <= 0 {
			pe.penalty = h.opts.Value
		}
		h.model.addPenalty(pe)
	})

	for _, c := range res.Conflicts {
		h.logger.Warn("single-point constraint conflict",
			zap.Int("node", c.NodeTag), zap.Int("dof", c.DOF),
			zap.Int("kept", c.Kept.GetTag()), zap.Int("discarded", c.Discarded.GetTag()))
	}
	if err != nil {
		return res, err
	}
	h.logger.Sugar().Debugf("subdomain %d: %d dof groups, %d elements, %d penalty constraints, %d dofs numbered last",
		h.subdomain.GetID(), h.model.NumDOFGroups(), len(h.model.elements), len(h.model.penalties), res.NumNodesLastDOF)
	return res, nil
}

// calibratePenalties maps every node touched by a multi-point constraint to the penalty derived
// from the largest initial stiffness diagonal entry among its incident elements.
func (h *PenaltyConstraintHandler) calibratePenalties() map[int]float64 {
	touched := make(map[int]float64)
	h.subdomain.ForEachMPConstraint(func(mp *model.MPConstraint) {
		for _, n := range mp.GetNodeTags() {
			touched[n] = 0
		}
	})
	if len(touched) == 0 {
		return touched
	}

	h.subdomain.ForEachElement(func(e *model.Element) {
		nodes := e.GetNodeTags()
		diag := e.GetInitialStiffnessDiagonal()
		if len(nodes) == 0 || len(diag) == 0 {
			return
		}
		// the diagonal is node-major, each node contributes its own dof count
		start := 0
		for _, n := range nodes {
			node, ok := h.subdomain.GetNode(n)
			if !ok {
				return
			}
			end := start + node.GetNumberDOF()
			if end > len(diag) {
				return
			}
			if k, ok := touched[n]; ok {
				for _, d := range diag[start:end] {
					k = math.Max(k, math.Abs(d))
				}
				touched[n] = k
			}
			start = end
		}
	})

	for n, k := range touched {
		touched[n] = PenaltyFromStiffness(k, h.opts.OrderOffset)
	}
	return touched
}

// PenaltyFromStiffness returns 10^(round(log10(k)) + orderOffset), or 0 when k is not positive.
func PenaltyFromStiffness(k, orderOffset float64) float64 {
	if k <= 0 {
		return 0
	}
	return math.Pow(10, math.Round(math.Log10(k))+orderOffset)
}
