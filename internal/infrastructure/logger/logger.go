// Package logger builds the zap loggers used across the backend and the gin
// and GORM adapters that feed them.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config selects the local output. Format is "json" or "console"; Output is
// stdout, stderr or a file path opened for append.
type Config struct {
	Level      string
	Format     string
	Output     string
	TimeFormat string
	Service    string
}

// DefaultConfig is a console logger at info level on stdout
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "console", Output: "stdout", TimeFormat: defaultTimeFormat}
}

// Logger is a zap logger whose local level can change while running
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// SetLevel changes the level of the local core. The extra cores passed to
// Build keep their own level.
func (l *Logger) SetLevel(level string) {
	l.level.SetLevel(parseLevel(level))
}

func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// Build writes to cfg.Output and tees every entry to the non-nil extra cores
// (remote sink, OTLP bridge).
func Build(cfg *Config, extra ...zapcore.Core) (*Logger, error) {
	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	cores := make([]zapcore.Core, 0, len(extra)+1)
	cores = append(cores, zapcore.NewCore(newEncoder(cfg), out, level))
	for _, core := range extra {
		if core != nil {
			cores = append(cores, core)
		}
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", cfg.Service)))
	}
	return &Logger{Logger: zap.New(zapcore.NewTee(cores...), opts...), level: level}, nil
}

// New is Build for callers that never change the level
func New(cfg *Config, extra ...zapcore.Core) (*zap.Logger, error) {
	l, err := Build(cfg, extra...)
	if err != nil {
		return nil, err
	}
	return l.Logger, nil
}

// parseLevel accepts zap level names plus "warning". Anything else is info.
func parseLevel(level string) zapcore.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return zapcore.WarnLevel
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func newEncoder(cfg *Config) zapcore.Encoder {
	layout := cfg.TimeFormat
	if layout == "" {
		layout = defaultTimeFormat
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if cfg.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openOutput(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}
