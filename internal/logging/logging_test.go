package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerHonorsLevelEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug level not enabled with LOG_LEVEL=debug")
	}
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "not-a-level")
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug level enabled without opting in")
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info level should be the default")
	}
}
