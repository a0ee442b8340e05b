package numberer

import (
	"context"
	"fmt"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/analysis"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/concurrent"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/metrics"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/transport"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RunLocal runs one numbering pass with the coordinator and one worker per worker model in this
// process. Worker i gets id i+1.
func RunLocal(ctx context.Context, coordinatorModel *analysis.Model, workerModels []*analysis.Model,
	numberer GraphNumberer, collector metrics.Collector, logger *zap.Logger) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := transport.NewLocalHub(len(workerModels))
	defer hub.Close()

	workers := make([]*Worker, 0, len(workerModels))
	for _, m := range workerModels {
		ch, err := hub.Connect(ctx)
		if err != nil {
			return 0, fmt.Errorf("connect local worker: %w", err)
		}
		w := NewWorker(m, collector, logger)
		w.SetChannel(ch)
		workers = append(workers, w)
	}

	workerErrs := make(chan []error, 1)
	go func() {
		pool := concurrent.NewWorkerPool[*Worker, error](len(workers), len(workers))
		workerErrs <- pool.Run(workers, func(w *Worker) error {
			_, err := w.Number(ctx)
			if err != nil {
				// unblock the coordinator if it still waits on this worker
				_ = w.GetChannel().Close()
			}
			return err
		})
	}()

	coordinator := NewCoordinator(coordinatorModel, hub, len(workers), numberer, collector, logger)
	numEqn, err := coordinator.Number(ctx)
	if err != nil {
		cancel()
	}
	for _, werr := range <-workerErrs {
		err = multierr.Append(err, werr)
	}
	_ = coordinator.Close()
	if err != nil {
		return 0, err
	}
	return numEqn, nil
}
