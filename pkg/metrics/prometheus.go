package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus. Collectors are registered on
// first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	movedElements   *prometheus.CounterVec
	movedWeight     *prometheus.CounterVec
	balanceRounds   *prometheus.HistogramVec
	partitionWeight *prometheus.GaugeVec
	numEquations    prometheus.Gauge
	numberingPasses *prometheus.CounterVec
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus uses prometheus.DefaultRegisterer when reg is nil and "partitioner" when
// namespace is empty.
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "partitioner"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.movedElements = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "moved_elements_total",
			Help:      "Total elements moved between partitions by strategy.",
		}, []string{"strategy"})

		p.movedWeight = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "moved_weight_total",
			Help:      "Total element weight moved between partitions by strategy.",
		}, []string{"strategy"})

		p.balanceRounds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "rounds",
			Help:      "Rounds executed per balance call by strategy.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16},
		}, []string{"strategy"})

		p.partitionWeight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "partition_weight",
			Help:      "Current weight of each partition.",
		}, []string{"partition"})

		p.numEquations = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "numberer",
			Name:      "equations",
			Help:      "Number of equations assigned by the last numbering pass.",
		})

		p.numberingPasses = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "numberer",
			Name:      "passes_total",
			Help:      "Numbering passes by role (coordinator, worker) and result (success, failure).",
		}, []string{"role", "result"})

		p.reg.MustRegister(p.movedElements)
		p.reg.MustRegister(p.movedWeight)
		p.reg.MustRegister(p.balanceRounds)
		p.reg.MustRegister(p.partitionWeight)
		p.reg.MustRegister(p.numEquations)
		p.reg.MustRegister(p.numberingPasses)
	})
}

func (p *PrometheusCollector) RecordMoves(strategy string, moved int, weight float64) {
	p.ensureRegistered()
	p.movedElements.WithLabelValues(strategy).Add(float64(moved))
	p.movedWeight.WithLabelValues(strategy).Add(weight)
}

func (p *PrometheusCollector) RecordBalanceRounds(strategy string, rounds int) {
	p.ensureRegistered()
	p.balanceRounds.WithLabelValues(strategy).Observe(float64(rounds))
}

func (p *PrometheusCollector) SetPartitionWeight(partition int, weight float64) {
	p.ensureRegistered()
	p.partitionWeight.WithLabelValues(strconv.Itoa(partition)).Set(weight)
}

func (p *PrometheusCollector) SetNumEquations(numEquations int) {
	p.ensureRegistered()
	p.numEquations.Set(float64(numEquations))
}

func (p *PrometheusCollector) RecordNumberingPass(role string, success bool) {
	p.ensureRegistered()
	result := "success"
	if !success {
		result = "failure"
	}
	p.numberingPasses.WithLabelValues(role, result).Inc()
}
