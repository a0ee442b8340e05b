package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Partition.NumPartitions)
	assert.Equal(t, 0, cfg.Partition.MainPartitionID)
	assert.Equal(t, PENALTY_MODE_AUTOMATIC, cfg.Penalty.Mode)
	assert.Equal(t, 3.0, cfg.Penalty.OrderOffset)
	assert.Equal(t, STRATEGY_SHED_HEAVIEST, cfg.Balance.Strategy)
	assert.Equal(t, 1.0, cfg.Balance.FactorGreater)
	assert.Equal(t, TRANSPORT_LOCAL, cfg.Transport.Kind)
	assert.Equal(t, 30*time.Second, cfg.Transport.Timeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, DEFAULT_METRICS_ADDR, cfg.Metrics.Addr)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PARTITIONER_PARTITION_NUM_PARTITIONS", "8")
	t.Setenv("PARTITIONER_BALANCE_STRATEGY", STRATEGY_RELEASE_TO_LIGHTER)

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Partition.NumPartitions)
	assert.Equal(t, STRATEGY_RELEASE_TO_LIGHTER, cfg.Balance.Strategy)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partitioner.yaml")
	content := []byte(`
partition:
  num_partitions: 4
  main_partition: 1
penalty:
  mode: manual
  value: 1.0e+9
transport:
  kind: nats
  url: nats://nats.internal:4222
  timeout: 5s
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Partition.NumPartitions)
	assert.Equal(t, 1, cfg.Partition.MainPartitionID)
	assert.Equal(t, PENALTY_MODE_MANUAL, cfg.Penalty.Mode)
	assert.Equal(t, 1e9, cfg.Penalty.Value)
	assert.Equal(t, TRANSPORT_NATS, cfg.Transport.Kind)
	assert.Equal(t, "nats://nats.internal:4222", cfg.Transport.URL)
	assert.Equal(t, 5*time.Second, cfg.Transport.Timeout)
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := &Config{
		Partition: PartitionConfig{NumPartitions: 0, MainPartitionID: 3},
		Penalty:   PenaltyConfig{Mode: "guess"},
		Balance:   BalanceConfig{Strategy: STRATEGY_SHED_HEAVIEST, NumReleases: 1, FactorGreater: 1},
		Transport: TransportConfig{Kind: TRANSPORT_LOCAL, SubjectPrefix: "p", Timeout: time.Second},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
}

func TestMetricsEndpointConfig(t *testing.T) {
	t.Setenv("PARTITIONER_METRICS_ENABLED", "true")
	t.Setenv("PARTITIONER_METRICS_ADDR", "127.0.0.1:9464")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Addr)

	cfg.Metrics.Addr = ""
	assert.ErrorContains(t, cfg.Validate(), "metrics.addr")
}
