// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package corelog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Disabled discards everything.  Packages start with it until a unit logger
// is handed to them.
var Disabled = zerolog.Nop()

const (
	DefaultLevel   = zerolog.InfoLevel
	DefaultLogFile = "chainstate.log"

	appName = "chainstate"
)

// Config selects the outputs of the unit loggers.  Console output is human
// readable on stderr unless LogsAsJson moves it to stdout as JSON lines.  The
// rolling file always receives JSON.
type Config struct {
	DisableConsoleLog  bool `yaml:"disable_console_log"`
	LogsAsJson         bool `yaml:"logs_as_json"`
	FileLoggingEnabled bool `yaml:"file_logging_enabled"`

	// Rolling file settings, unused without FileLoggingEnabled.
	Directory  string `yaml:"directory"`
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxBackups int    `yaml:"max_backups"` // rolled files kept
	MaxAge     int    `yaml:"max_age"`     // days
}

// DefaultConfig logs to the console only and keeps the rolling file settings
// ready for FileLoggingEnabled.
func DefaultConfig() Config {
	return Config{
		Directory:  "logs",
		Filename:   DefaultLogFile,
		MaxSize:    150,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// ParseLevel maps a configured level name to a zerolog level.  The btcd
// style "critical" is accepted as an alias of fatal.
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.EqualFold(level, "critical") {
		return zerolog.FatalLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(level))
}

// New creates a logger tagged with the unit name.
func New(unit string, level zerolog.Level, cfg Config) zerolog.Logger {
	return NewWithOutput(unit, level, cfg, nil)
}

// NewWithOutput is like New but additionally writes every entry to extra
// when it is not nil.
func NewWithOutput(unit string, level zerolog.Level, cfg Config, extra io.Writer) zerolog.Logger {
	outputs, fileErr := cfg.writers(unit)
	if extra != nil {
		outputs = append(outputs, extra)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(outputs...)).
		Level(level).
		With().Timestamp().
		Str("app", appName).
		Str("unit", unit).
		Logger()

	if fileErr != nil {
		logger.Error().Err(fileErr).Msg("File logging disabled")
	}
	return logger
}

// writers returns the outputs enabled by cfg.  A rolling file that cannot be
// set up is left out and reported.
func (cfg Config) writers(unit string) ([]io.Writer, error) {
	var outputs []io.Writer
	switch {
	case cfg.DisableConsoleLog:
	case cfg.LogsAsJson:
		outputs = append(outputs, os.Stdout)
	default:
		outputs = append(outputs, consoleWriter(unit))
	}

	if !cfg.FileLoggingEnabled {
		return outputs, nil
	}
	file, err := cfg.rollingFile()
	if err != nil {
		return outputs, err
	}
	return append(outputs, file), nil
}

// consoleWriter prints "time | LEVEL | UNIT | message fields".
func consoleWriter(unit string) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s| %s |", i, unit))
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("%-6s  ", i)
		},
	}
}

func (cfg Config) rollingFile() (*lumberjack.Logger, error) {
	if err := os.MkdirAll(cfg.Directory, 0744); err != nil {
		return nil, errors.Wrapf(err, "create log directory %s", cfg.Directory)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, cfg.Filename),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
	}, nil
}
