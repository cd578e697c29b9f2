package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fonsecaaso/tinylink/config"
)

// Options selects where log entries go. Every sink is optional; with none set
// the logger discards everything.
//
// ErrorOutput receives Loki push failures, which cannot go through the logger
// itself. It defaults to stderr when Console is set and is discarded otherwise.
type Options struct {
	Level       string
	Console     bool
	FilePath    string
	LokiURL     string
	ServiceName string
	Environment string
	ErrorOutput io.Writer
}

// New builds a logger teeing to the configured sinks. The returned shutdown
// func flushes pending Loki pushes and closes the log file.
func New(opts Options) (*zap.Logger, func(context.Context) error, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var cores []zapcore.Core
	var closers []func(context.Context) error

	if opts.Console {
		consoleConfig := zap.NewDevelopmentEncoderConfig()
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleConfig),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if opts.FilePath != "" {
		if dir := filepath.Dir(opts.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		file, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.Lock(file), level))
		closers = append(closers, func(context.Context) error { return file.Close() })
	}

	if opts.LokiURL != "" {
		writer := newLokiWriter(opts.LokiURL, opts.ServiceName, opts.Environment, pushErrorOutput(opts))
		cores = append(cores, zapcore.NewCore(jsonEncoder(), writer, level))
		closers = append([]func(context.Context) error{writer.Shutdown}, closers...)
	}

	core := zapcore.NewNopCore()
	if len(cores) > 0 {
		core = zapcore.NewTee(cores...)
	}

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if opts.ServiceName != "" {
		logger = logger.With(zap.String("service", opts.ServiceName))
	}

	shutdown := func(ctx context.Context) error {
		_ = logger.Sync()
		var firstErr error
		for _, closeFn := range closers {
			if err := closeFn(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	return logger, shutdown, nil
}

// Init builds the process logger from cfg and installs it as the zap global.
// Interactive sessions pass console=false so log lines do not draw over the screen.
func Init(cfg *config.Config, console bool) (*zap.Logger, func(context.Context) error, error) {
	logger, shutdown, err := New(Options{
		Level:       cfg.LogLevel,
		Console:     console,
		FilePath:    cfg.LogFile,
		LokiURL:     cfg.LokiURL,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, nil, err
	}

	zap.ReplaceGlobals(logger)
	return logger, shutdown, nil
}

func pushErrorOutput(opts Options) zapcore.WriteSyncer {
	out := opts.ErrorOutput
	if out == nil {
		out = io.Discard
		if opts.Console {
			out = os.Stderr
		}
	}
	return zapcore.Lock(zapcore.AddSync(out))
}

func jsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}
