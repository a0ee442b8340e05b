package numberer

import (
	"context"
	"fmt"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/analysis"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/metrics"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/transport"
	"go.uber.org/zap"
)

const (
	ROLE_WORKER      = "worker"
	ROLE_COORDINATOR = "coordinator"
)

// Worker numbers the dof groups of one partition from the offsets the coordinator hands back.
type Worker struct {
	model     *analysis.Model
	channel   transport.Channel
	collector metrics.Collector
	logger    *zap.Logger
}

func NewWorker(m *analysis.Model, collector metrics.Collector, logger *zap.Logger) *Worker {
	if collector == nil {
		collector = metrics.NewNop()
	}
	return &Worker{model: m, collector: collector, logger: logger}
}

func (w *Worker) SetChannel(ch transport.Channel) {
	w.channel = ch
}

func (w *Worker) GetChannel() transport.Channel {
	return w.channel
}

// Number sends the local dof-group graph, waits for the index list and numbers every
// assignable slot. It returns the number of equations of the whole model.
func (w *Worker) Number(ctx context.Context) (int, error) {
	numEqn, err := w.number(ctx)
	w.collector.RecordNumberingPass(ROLE_WORKER, err == nil)
	return numEqn, err
}

func (w *Worker) number(ctx context.Context) (int, error) {
	if w.channel == nil {
		return 0, fmt.Errorf("worker numbering: %w", pkg.ErrMissingLink)
	}
	w.model.ResetNumbering()

	graph, err := w.model.GetDOFGroupGraph()
	if err != nil {
		return 0, err
	}
	if err := w.channel.SendGraph(ctx, graph); err != nil {
		return 0, fmt.Errorf("worker %d send graph: %w", w.channel.ID(), err)
	}
	list, err := w.channel.RecvIndexList(ctx)
	if err != nil {
		return 0, fmt.Errorf("worker %d receive index list: %w", w.channel.ID(), err)
	}

	for _, pair := range list.Pairs {
		if _, err := w.model.AssignFromOffset(pair.Tag, pair.Offset); err != nil {
			return 0, fmt.Errorf("worker %d: %w", w.channel.ID(), err)
		}
	}
	w.logger.Sugar().Debugf("worker %d numbered %d dof groups, %d equations in model",
		w.channel.ID(), len(list.Pairs), list.NumEquations)
	return list.NumEquations, nil
}
