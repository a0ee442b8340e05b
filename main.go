package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/analysis"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/balancer"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/config"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/logger"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/metrics"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/model"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/numberer"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/partitioner"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/transport"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	gridCellsX  = 16
	gridCellsY  = 8
	gridNumDOF  = 2
	gridCellEA  = 2.0e5
	loadPattern = 1
)

func main() {
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(viper.New())
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	domain, err := buildGridDomain(gridCellsX, gridCellsY, cfg.Partition)
	if err != nil {
		log.Fatal("build model", zap.Error(err))
	}

	collector, srv := newCollector(cfg.Metrics, log)
	if srv != nil {
		srv.Start()
		defer srv.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Transport.Timeout)
	defer cancel()
	numEqn, err := run(ctx, domain, cfg, collector, log)
	if err != nil {
		log.Fatal("decompose model", zap.Error(err))
	}
	log.Sugar().Infof("model decomposed into %d partitions with %d equations", cfg.Partition.NumPartitions, numEqn)

	if srv != nil {
		// keep the final metrics scrapeable until interrupted
		sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-sigCtx.Done()
	}
}

// newCollector returns a Prometheus collector on its own registry plus the server exposing it,
// or a no-op collector and a nil server when metrics are disabled.
func newCollector(cfg config.MetricsConfig, log *zap.Logger) (metrics.Collector, *metrics.Server) {
	if !cfg.Enabled {
		return metrics.NewNop(), nil
	}
	reg := prometheus.NewRegistry()
	return metrics.NewPrometheus(reg, ""), metrics.NewServer(cfg.Addr, reg, log)
}

// buildGridDomain meshes an nx by ny grid of four-node cells. The left edge is clamped, the
// top right corner is tied to its left neighbour and a load pulls on the right edge.
func buildGridDomain(nx, ny int, cfg config.PartitionConfig) (*model.Domain, error) {
	d := model.NewDomain()
	for p := pkg.FIRST_PARTITION_ID; p <= cfg.NumPartitions; p++ {
		if p == cfg.MainPartitionID {
			continue
		}
		if _, err := d.AddPartition(p); err != nil {
			return nil, err
		}
	}

	root := d.GetMain()
	nodeTag := func(i, j int) int { return j*(nx+1) + i + 1 }
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			if err := root.AddNode(model.NewNode(nodeTag(i, j), gridNumDOF, float64(i), float64(j), 0)); err != nil {
				return nil, err
			}
		}
	}

	diag := make([]float64, 4*gridNumDOF)
	for k := range diag {
		diag[k] = gridCellEA
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			nodes := []int{nodeTag(i, j), nodeTag(i+1, j), nodeTag(i+1, j+1), nodeTag(i, j+1)}
			if err := root.AddElement(model.NewElement(j*nx+i+1, nodes, diag, 1)); err != nil {
				return nil, err
			}
		}
	}

	spTag := 1
	for j := 0; j <= ny; j++ {
		for dof := 0; dof < gridNumDOF; dof++ {
			if err := root.AddSPConstraint(model.NewSPConstraint(spTag, nodeTag(0, j), dof, 0)); err != nil {
				return nil, err
			}
			spTag++
		}
	}

	tie := model.NewMPConstraint(1, []int{nodeTag(nx-1, ny)}, nodeTag(nx, ny), []int{0, 1}, []int{0, 1})
	if err := root.AddMPConstraint(tie); err != nil {
		return nil, err
	}

	pattern := model.NewLoadPattern(loadPattern)
	for j := 0; j <= ny; j++ {
		pattern.AddNodalLoad(model.NewNodalLoad(j+1, nodeTag(nx, j), []float64{1, 0}))
	}
	if err := root.AddLoadPattern(pattern); err != nil {
		return nil, err
	}
	return d, nil
}

// run partitions the domain, balances it once, builds every partition's equation structure and
// numbers the equations. It returns the number of equations.
func run(ctx context.Context, domain *model.Domain, cfg *config.Config, collector metrics.Collector, log *zap.Logger) (int, error) {
	dp := partitioner.NewDomainPartitioner(domain, partitioner.NewRecursiveBisection(cfg.Partition.Seed, log), log)
	if err := dp.Partition(cfg.Partition.NumPartitions, cfg.Partition.MainPartitionID); err != nil {
		return 0, err
	}

	lb, err := balancer.New(cfg.Balance, dp, collector, log)
	if err != nil {
		return 0, err
	}
	weighted, err := dp.GetPartitionGraph()
	if err != nil {
		return 0, err
	}
	res, err := lb.Balance(weighted)
	if err != nil {
		return 0, fmt.Errorf("balance with %s: %w", lb.Name(), err)
	}
	log.Sugar().Infof("%s moved %d elements in %d rounds", lb.Name(), res.Moved, res.Rounds)

	opts := analysis.PenaltyOptions{
		Automatic:   cfg.Penalty.Mode == config.PENALTY_MODE_AUTOMATIC,
		Value:       cfg.Penalty.Value,
		OrderOffset: cfg.Penalty.OrderOffset,
	}
	coordinatorModel, err := handleConstraints(domain.GetMain(), opts, log)
	if err != nil {
		return 0, err
	}
	workerModels := make([]*analysis.Model, 0, cfg.Partition.NumPartitions)
	for _, p := range dp.GetPartitionIDs() {
		if p == dp.GetMainPartitionID() {
			continue
		}
		sub, err := dp.GetCollection(p)
		if err != nil {
			return 0, err
		}
		m, err := handleConstraints(sub, opts, log)
		if err != nil {
			return 0, err
		}
		workerModels = append(workerModels, m)
	}

	rcm := numberer.NewReverseCuthillMcKee()
	if cfg.Transport.Kind == config.TRANSPORT_NATS {
		return numberOverNATS(ctx, cfg.Transport, coordinatorModel, workerModels, rcm, collector, log)
	}
	return numberer.RunLocal(ctx, coordinatorModel, workerModels, rcm, collector, log)
}

func handleConstraints(sub *model.Subdomain, opts analysis.PenaltyOptions, log *zap.Logger) (*analysis.Model, error) {
	m := analysis.NewModel()
	h := analysis.NewPenaltyConstraintHandler(opts, log)
	h.SetLinks(sub, m)
	res, err := h.Handle(nil)
	if err != nil {
		return nil, err
	}
	if conflicts := res.ConflictError(); conflicts != nil {
		log.Warn("single-point constraint conflicts", zap.Int("partition", sub.GetID()), zap.Error(conflicts))
	}
	return m, nil
}

// numberOverNATS runs every worker in this process but routes the numbering through the NATS
// server at cfg.URL.
func numberOverNATS(ctx context.Context, cfg config.TransportConfig, coordinatorModel *analysis.Model,
	workerModels []*analysis.Model, gn numberer.GraphNumberer, collector metrics.Collector, log *zap.Logger) (int, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("fem-subdomain-partitioner"))
	if err != nil {
		return 0, fmt.Errorf("connect %s: %w", cfg.URL, err)
	}
	defer nc.Close()

	errs := make(chan error, len(workerModels))
	for _, m := range workerModels {
		go func(m *analysis.Model) {
			ch, err := transport.DialNATS(ctx, nc, cfg.SubjectPrefix)
			if err != nil {
				errs <- err
				return
			}
			defer ch.Close()
			w := numberer.NewWorker(m, collector, log)
			w.SetChannel(ch)
			_, err = w.Number(ctx)
			errs <- err
		}(m)
	}

	coordinator := numberer.NewCoordinator(coordinatorModel, transport.NewNATSHub(nc, cfg.SubjectPrefix, log),
		len(workerModels), gn, collector, log)
	defer coordinator.Close()
	numEqn, err := coordinator.Number(ctx)
	for range workerModels {
		err = multierr.Append(err, <-errs)
	}
	if err != nil {
		return 0, err
	}
	return numEqn, nil
}
