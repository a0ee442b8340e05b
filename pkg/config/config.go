package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	PENALTY_MODE_MANUAL    = "manual"
	PENALTY_MODE_AUTOMATIC = "automatic"

	STRATEGY_SHED_HEAVIEST       = "shed_heaviest"
	STRATEGY_SWAP_TO_LIGHTER     = "swap_heavier_to_lighter_neighbours"
	STRATEGY_RELEASE_TO_LIGHTER  = "release_heavier_to_lighter_neighbours"
	TRANSPORT_LOCAL              = "local"
	TRANSPORT_NATS               = "nats"
	ENV_PREFIX                   = "PARTITIONER"
	DEFAULT_NATS_URL             = "nats://127.0.0.1:4222"
	DEFAULT_TRANSPORT_TIMEOUT    = 30 * time.Second
	DEFAULT_NUMBER_OF_PARTITIONS = 2
	DEFAULT_METRICS_ADDR         = ":9090"
)

type PartitionConfig struct {
	NumPartitions   int
	MainPartitionID int
	Seed            uint64
}

type PenaltyConfig struct {
	Mode        string
	Value       float64
	OrderOffset float64
}

type BalanceConfig struct {
	Strategy            string
	NumReleases         int
	FactorGreater       float64
	RequireAdjacentOnly bool
}

type TransportConfig struct {
	Kind          string
	URL           string
	SubjectPrefix string
	Timeout       time.Duration
}

// MetricsConfig turns on the Prometheus endpoint. Without it metrics are discarded.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

type Config struct {
	Partition PartitionConfig
	Penalty   PenaltyConfig
	Balance   BalanceConfig
	Transport TransportConfig
	Metrics   MetricsConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("partition.num_partitions", DEFAULT_NUMBER_OF_PARTITIONS)
	v.SetDefault("partition.main_partition", pkg.NO_MAIN_PARTITION)
	v.SetDefault("partition.seed", pkg.DEFAULT_PARTITIONER_SEED)

	v.SetDefault("penalty.mode", PENALTY_MODE_AUTOMATIC)
	v.SetDefault("penalty.value", pkg.DEFAULT_PENALTY_VALUE)
	v.SetDefault("penalty.order_offset", pkg.DEFAULT_PENALTY_ORDER_OFFSET)

	v.SetDefault("balance.strategy", STRATEGY_SHED_HEAVIEST)
	v.SetDefault("balance.num_releases", pkg.DEFAULT_NUM_RELEASES)
	v.SetDefault("balance.factor_greater", pkg.DEFAULT_FACTOR_GREATER)
	v.SetDefault("balance.require_adjacent_only", false)

	v.SetDefault("transport.kind", TRANSPORT_LOCAL)
	v.SetDefault("transport.url", DEFAULT_NATS_URL)
	v.SetDefault("transport.subject_prefix", pkg.DEFAULT_SUBJECT_PREFIX)
	v.SetDefault("transport.timeout", DEFAULT_TRANSPORT_TIMEOUT)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", DEFAULT_METRICS_ADDR)
}

// Load reads the configuration from v, with PARTITIONER_<SECTION>_<KEY> environment overrides.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Partition: PartitionConfig{
			NumPartitions:   v.GetInt("partition.num_partitions"),
			MainPartitionID: v.GetInt("partition.main_partition"),
			Seed:            v.GetUint64("partition.seed"),
		},
		Penalty: PenaltyConfig{
			Mode:        v.GetString("penalty.mode"),
			Value:       v.GetFloat64("penalty.value"),
			OrderOffset: v.GetFloat64("penalty.order_offset"),
		},
		Balance: BalanceConfig{
			Strategy:            v.GetString("balance.strategy"),
			NumReleases:         v.GetInt("balance.num_releases"),
			FactorGreater:       v.GetFloat64("balance.factor_greater"),
			RequireAdjacentOnly: v.GetBool("balance.require_adjacent_only"),
		},
		Transport: TransportConfig{
			Kind:          v.GetString("transport.kind"),
			URL:           v.GetString("transport.url"),
			SubjectPrefix: v.GetString("transport.subject_prefix"),
			Timeout:       v.GetDuration("transport.timeout"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Addr:    v.GetString("metrics.addr"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML (or any viper-supported) file, then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Load(v)
}

func (c *Config) Validate() error {
	var err error
	if c.Partition.NumPartitions < 1 {
		err = multierr.Append(err, fmt.Errorf("partition.num_partitions must be positive, got %d", c.Partition.NumPartitions))
	}
	if c.Partition.MainPartitionID < pkg.NO_MAIN_PARTITION || c.Partition.MainPartitionID > c.Partition.NumPartitions {
		err = multierr.Append(err, fmt.Errorf("partition.main_partition %d outside [0, %d]", c.Partition.MainPartitionID, c.Partition.NumPartitions))
	}

	switch c.Penalty.Mode {
	case PENALTY_MODE_MANUAL:
		if c.Penalty.Value <= 0 {
			err = multierr.Append(err, errors.New("penalty.value must be positive"))
		}
	case PENALTY_MODE_AUTOMATIC:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown penalty.mode %q", c.Penalty.Mode))
	}

	switch c.Balance.Strategy {
	case STRATEGY_SHED_HEAVIEST, STRATEGY_SWAP_TO_LIGHTER, STRATEGY_RELEASE_TO_LIGHTER:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown balance.strategy %q", c.Balance.Strategy))
	}
	if c.Balance.NumReleases < 1 {
		err = multierr.Append(err, errors.New("balance.num_releases must be positive"))
	}
	if c.Balance.FactorGreater < 1 {
		err = multierr.Append(err, fmt.Errorf("balance.factor_greater must be >= 1, got %g", c.Balance.FactorGreater))
	}

	switch c.Transport.Kind {
	case TRANSPORT_LOCAL:
	case TRANSPORT_NATS:
		if c.Transport.URL == "" {
			err = multierr.Append(err, errors.New("transport.url required for nats transport"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown transport.kind %q", c.Transport.Kind))
	}
	if c.Transport.SubjectPrefix == "" {
		err = multierr.Append(err, errors.New("transport.subject_prefix must not be empty"))
	}
	if c.Transport.Timeout <= 0 {
		err = multierr.Append(err, errors.New("transport.timeout must be positive"))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		err = multierr.Append(err, errors.New("metrics.addr required when metrics are enabled"))
	}
	return err
}
