package logger

import (
	"time"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/logger/config"
	myZap "github.com/lintang-b-s/fem-subdomain-partitioner/pkg/logger/zap"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func New() (*zap.Logger, error) {
	viper.SetDefault("LOG_LEVEL", config.INFO_LEVEL)
	viper.SetDefault("LOG_TIME_FORMAT", time.RFC3339Nano)
	viper.SetDefault("LOG_ENCODING", config.JSON_ENCODING)
	viper.AutomaticEnv()

	cfg := config.Configuration{
		Level:      viper.GetInt("LOG_LEVEL"),
		TimeFormat: viper.GetString("LOG_TIME_FORMAT"),
		Encoding:   viper.GetString("LOG_ENCODING"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	log, err := myZap.New(cfg)

	if err != nil {
		return nil, err
	}

	return log, nil
}
