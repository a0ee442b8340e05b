package metrics

// Collector receives decomposition metrics from the balancer and the numberer.
type Collector interface {
	// RecordMoves counts elements moved by one balancing round of the named strategy.
	RecordMoves(strategy string, moved int, weight float64)
	RecordBalanceRounds(strategy string, rounds int)
	SetPartitionWeight(partition int, weight float64)
	SetNumEquations(numEquations int)
	RecordNumberingPass(role string, success bool)
}

// NopCollector discards every metric.
type NopCollector struct{}

var _ Collector = (*NopCollector)(nil)

func NewNop() *NopCollector {
	return &NopCollector{}
}

func (n *NopCollector) RecordMoves(_ string, _ int, _ float64) {}

func (n *NopCollector) RecordBalanceRounds(_ string, _ int) {}

func (n *NopCollector) SetPartitionWeight(_ int, _ float64) {}

func (n *NopCollector) SetNumEquations(_ int) {}

func (n *NopCollector) RecordNumberingPass(_ string, _ bool) {}
