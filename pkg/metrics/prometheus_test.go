package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheus(reg, "test")

	c.RecordMoves("shed_heaviest", 3, 4.5)
	c.RecordMoves("shed_heaviest", 1, 0.5)
	c.SetPartitionWeight(2, 7)
	c.SetNumEquations(42)
	c.RecordNumberingPass("worker", true)
	c.RecordNumberingPass("worker", false)
	c.RecordBalanceRounds("shed_heaviest", 2)

	assert.Equal(t, 4.0, testutil.ToFloat64(c.movedElements.WithLabelValues("shed_heaviest")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.movedWeight.WithLabelValues("shed_heaviest")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.partitionWeight.WithLabelValues("2")))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.numEquations))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.numberingPasses.WithLabelValues("worker", "failure")))

	count, err := testutil.GatherAndCount(reg, "test_balancer_rounds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNopCollector(t *testing.T) {
	var c Collector = NewNop()
	assert.NotPanics(t, func() {
		c.RecordMoves("x", 1, 1)
		c.RecordBalanceRounds("x", 1)
		c.SetPartitionWeight(1, 1)
		c.SetNumEquations(1)
		c.RecordNumberingPass("coordinator", true)
	})
}
