package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultIsNop(t *testing.T) {
	if L() == nil {
		t.Fatal("nil logger")
	}
	L().Info("discarded")
}

func TestBuildJSONConsole(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "warn")
	var buf bytes.Buffer
	logger, err := build(&buf)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("arena_save_failed", zap.String("game_id", "g1"))
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["msg"] != "arena_save_failed" || entry["level"] != "warn" || entry["game_id"] != "g1" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestBuildFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "arena.log")
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", path)
	logger, err := build(nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	logger.Info("turnloop_start")
	_ = logger.Sync()
	raw, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(raw), `"msg":"turnloop_start"`) {
		t.Fatalf("file = %q, %v", raw, err)
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(&buf), zapcore.DebugLevel)
	prev := SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })

	L().Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("global logger not swapped: %q", buf.String())
	}
	if parseLevel("WARNING") != zapcore.WarnLevel || parseLevel("bogus") != zapcore.InfoLevel {
		t.Fatal("parseLevel")
	}
}
