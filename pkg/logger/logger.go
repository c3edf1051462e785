package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config represents logger configuration
type Config struct {
	Level            string  // debug, info, warn, error
	Format           string  // json, console
	OutputPath       string  // stdout, stderr, or file path
	SlowQuerySeconds float64 // slow query threshold
	EnableSampling   bool    // enable sampling for production
	ServiceName      string  // service name for logs
	ServiceVersion   string  // service version for logs
	Environment      string  // environment (production, development, etc.)
}

// NewWithConfig creates a new zap logger with full configuration
func NewWithConfig(cfg Config) (*zap.Logger, error) {
	level := parseLogLevel(cfg.Level)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	// Use color encoding for console format in development
	if cfg.Format == "console" && cfg.Environment != "production" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, getWriteSyncer(cfg.OutputPath), level)

	if cfg.EnableSampling {
		core = zapcore.NewSamplerWithOptions(
			core,
			time.Second, // 1 second tick
			100,         // first 100 entries per second
			10,          // thereafter, 1 entry per 10
		)
	}

	// Stack traces only for panics; stage failures are reported as fields.
	logger := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.DPanicLevel),
	)

	logger = logger.With(
		zap.String("service", cfg.ServiceName),
		zap.String("version", cfg.ServiceVersion),
		zap.String("environment", cfg.Environment),
	)

	return logger, nil
}

// parseLogLevel converts string log level to zapcore.Level
func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// getWriteSyncer returns write syncer based on output path
func getWriteSyncer(outputPath string) zapcore.WriteSyncer {
	switch outputPath {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout)
	case "stderr":
		return zapcore.AddSync(os.Stderr)
	default:
		// File output with rotation
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   outputPath,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28,   // days
			Compress:   true, // compress rotated files
		})
	}
}

// ContextKey is the type for context keys
type ContextKey string

const (
	// RunIDKey is the context key for the pipeline run ID
	RunIDKey ContextKey = "run_id"
	// StageKey is the context key for the pipeline stage name
	StageKey ContextKey = "stage"
)

// WithRunID returns a copy of ctx carrying the run ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithStage returns a copy of ctx carrying the stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// WithContext creates a logger with context fields (run_id, stage)
func WithContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 2)

	if id := GetRunID(ctx); id != "" {
		fields = append(fields, zap.String("run_id", id))
	}

	if stage := GetStage(ctx); stage != "" {
		fields = append(fields, zap.String("stage", stage))
	}

	if len(fields) > 0 {
		return logger.With(fields...)
	}

	return logger
}

// GetRunID extracts run ID from context
func GetRunID(ctx context.Context) string {
	if runID := ctx.Value(RunIDKey); runID != nil {
		if id, ok := runID.(string); ok {
			return id
		}
	}
	return ""
}

// GetStage extracts the stage name from context
func GetStage(ctx context.Context) string {
	if stage := ctx.Value(StageKey); stage != nil {
		if s, ok := stage.(string); ok {
			return s
		}
	}
	return ""
}
