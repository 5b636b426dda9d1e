package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chazu/strata/pkg/config"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.log")

	logger, err := New(config.LoggingConfig{Level: "info", File: path}, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("decomposed", zap.String("wall", "W1"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"wall":"W1"`) {
		t.Errorf("log missing field: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %s", out)
	}
}

func TestVerboseForcesDebug(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "error"}, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("verbose logger should enable debug")
	}
}

func TestBadLevel(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "chatty"}, false); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Error("OrNop should return its argument")
	}
}
