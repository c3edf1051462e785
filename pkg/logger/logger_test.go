package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("unknown"))
}

func TestNewWithConfig_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etl.log")

	l, err := NewWithConfig(Config{
		Level:       "info",
		Format:      "json",
		OutputPath:  path,
		ServiceName: "user-etl",
		Environment: "test",
	})
	require.NoError(t, err)

	l.Info("hello")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"service":"user-etl"`)
}

func TestStartRunAndWithContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx, runID := StartRun(context.Background())
	ctx = WithStage(ctx, "load")

	_, err := uuid.Parse(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, GetRunID(ctx))

	WithContext(ctx, base).Info("x")
	WithContext(context.Background(), base).Info("y")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, runID, entries[0].ContextMap()["run_id"])
	assert.Equal(t, "load", entries[0].ContextMap()["stage"])
	assert.Empty(t, entries[1].ContextMap())
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gl := NewGormLoggerWithConfig(zap.New(core), 0.2, "debug")
	ctx := context.Background()

	long := "INSERT INTO users VALUES " + strings.Repeat("(?),", 600)
	gl.Trace(ctx, time.Now(), func() (string, int64) { return long, 600 }, nil)
	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("boom"))
	gl.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 2", 1 }, nil)

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "gorm query", entries[0].Message)
	assert.Equal(t, true, entries[0].ContextMap()["sql_truncated"])
	assert.Equal(t, "gorm query error", entries[1].Message)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "gorm slow query", entries[2].Message)
}

func TestGormLogger_Silent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gl := NewGormLoggerWithConfig(zap.New(core), 0, "silent")

	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("boom"))
	gl.LogMode(gormlogger.Info).Info(context.Background(), "now %s", "visible")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "now visible", logs.All()[0].Message)
}
