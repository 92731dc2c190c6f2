package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New("warn", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info enabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error disabled at warn level")
	}

	dev, err := New("debug", true)
	if err != nil {
		t.Fatalf("New development: %v", err)
	}
	if !dev.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug disabled at debug level")
	}

	if _, err := New("chatty", false); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
