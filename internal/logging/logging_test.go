package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/koios/dreamcaster/internal/config"
)

func TestNewWritesFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dreamcaster.log")

	logger, closer, err := New(config.LogConfig{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("Saved sprite")
	logger.Debug("filtered out")
	closer()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"msg":"Saved sprite"`) {
		t.Errorf("log file missing info entry: %s", content)
	}
	if strings.Contains(content, "filtered out") {
		t.Errorf("debug entry should be filtered at info level: %s", content)
	}
}

func TestNewWithoutFile(t *testing.T) {
	logger, closer, err := New(config.LogConfig{Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer()

	if logger == nil {
		t.Fatal("expected logger")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}
