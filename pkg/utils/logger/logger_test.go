package logger_test

import (
	"context"
	"testing"

	"polymigrate/pkg/utils/contextkey"
	"polymigrate/pkg/utils/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextFieldsAreAttached(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.GetLogger()
	logger.SetGlobal(logger.NewWithZap(zap.New(core)))
	defer logger.SetGlobal(prev)

	ctx := context.WithValue(context.Background(), contextkey.TraceID, "trace-1")
	ctx = context.WithValue(ctx, contextkey.RunID, "run-9")
	logger.Warn(ctx, "test case skipped", zap.Int("index", 2))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["trace_id"] != "trace-1" {
		t.Fatalf("trace_id = %v", fields["trace_id"])
	}
	if fields["run_id"] != "run-9" {
		t.Fatalf("run_id = %v", fields["run_id"])
	}
	if fields["index"] != int64(2) {
		t.Fatalf("index = %v", fields["index"])
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := logger.NewLogger(logger.Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestGlobalFuncsWithoutInit(t *testing.T) {
	prev := logger.GetLogger()
	logger.SetGlobal(nil)
	defer logger.SetGlobal(prev)

	logger.Info(context.Background(), "dropped")
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync() = %v", err)
	}
}

func TestLevelFuncsShareContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.GetLogger()
	logger.SetGlobal(logger.NewWithZap(zap.New(core)))
	defer logger.SetGlobal(prev)

	ctx := context.WithValue(context.Background(), contextkey.RequestID, "req-7")
	logger.Debug(ctx, "d")
	logger.Info(ctx, "i")
	logger.Warn(ctx, "w")
	logger.Error(ctx, "e")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, entry := range entries {
		if entry.Level != wantLevels[i] {
			t.Fatalf("entry %d level = %v, want %v", i, entry.Level, wantLevels[i])
		}
		if entry.ContextMap()["request_id"] != "req-7" {
			t.Fatalf("entry %d request_id = %v", i, entry.ContextMap()["request_id"])
		}
	}
}
