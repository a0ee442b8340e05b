package config

import (
	"fmt"

	"go.uber.org/multierr"
)

// levels follow zapcore.Level numbering
const (
	DEBUG_LEVEL = iota - 1
	INFO_LEVEL
	WARN_LEVEL
	ERROR_LEVEL
	DPANIC_LEVEL
	PANIC_LEVEL
	FATAL_LEVEL
)

const (
	JSON_ENCODING    = "json"
	CONSOLE_ENCODING = "console"
)

type Configuration struct {
	Level      int
	TimeFormat string
	Encoding   string
}

func (c Configuration) Validate() error {
	var err error
	if c.Level < DEBUG_LEVEL || c.Level > FATAL_LEVEL {
		err = multierr.Append(err, fmt.Errorf("log level %d out of range [%d, %d]", c.Level, DEBUG_LEVEL, FATAL_LEVEL))
	}
	if c.TimeFormat == "" {
		err = multierr.Append(err, fmt.Errorf("log time format must not be empty"))
	}
	if c.Encoding != "" && c.Encoding != JSON_ENCODING && c.Encoding != CONSOLE_ENCODING {
		err = multierr.Append(err, fmt.Errorf("unknown log encoding %q", c.Encoding))
	}
	return err
}
