// Package obslog builds the process-wide zap logger.
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger = zap.NewNop()

// L returns the global logger. It is a no-op logger until Init runs.
func L() *zap.Logger { return globalLogger }

// Options select encoders and sinks.
type Options struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Format  string `env:"LOG_FORMAT" envDefault:"legacy"`
	Console bool   `env:"LOG_TO_CONSOLE" envDefault:"true"`
	ToFile  bool   `env:"LOG_TO_FILE" envDefault:"false"`
	File    string `env:"LOG_FILE" envDefault:"logs/frames.log"`
	Caller  bool   `env:"LOG_CALLER" envDefault:"false"`
}

// InitFromEnv reads LOG_* variables and installs the result as L().
func InitFromEnv() error {
	var opts Options
	if err := env.Parse(&opts); err != nil {
		return fmt.Errorf("parse log env: %w", err)
	}
	logger, err := New(opts)
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// New builds a logger without touching the global.
func New(opts Options) (*zap.Logger, error) {
	level := parseLevel(opts.Level)
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format != "legacy" && format != "json" && format != "console" {
		format = "legacy"
	}

	var cores []zapcore.Core
	if opts.Console {
		cores = append(cores, zapcore.NewCore(encoder(format), zapcore.AddSync(os.Stdout), level))
	}
	if opts.ToFile {
		path := strings.TrimSpace(opts.File)
		if path == "" {
			path = filepath.Join("logs", "frames.log")
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoder(format), zapcore.AddSync(f), level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
	if opts.Caller || format == "legacy" {
		logger = logger.WithOptions(zap.AddCaller())
	}
	return logger, nil
}

func encoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	switch format {
	case "json":
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	case "console":
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	default:
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.ConsoleSeparator = " | "
		return zapcore.NewConsoleEncoder(cfg)
	}
}

func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
