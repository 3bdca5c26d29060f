package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PerMove != 30*time.Second || cfg.Tick != 500*time.Millisecond || cfg.SavedGamesMax != 50 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Weights.WinRate != 0.5 || cfg.Thresholds != nil {
		t.Fatalf("analysis defaults = %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", " redis://localhost:6379/1 ")
	t.Setenv("ENGINE_PATH", "/usr/bin/stockfish")
	t.Setenv("ENGINE_DEPTH", "12")
	t.Setenv("TURN_PER_MOVE_SECONDS", "5")
	t.Setenv("TURN_TICK_MS", "100")
	t.Setenv("SAVED_GAMES_TTL_HOURS", "24")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RedisURL != "redis://localhost:6379/1" || cfg.EngineDepth != 12 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.PerMove != 5*time.Second || cfg.Tick != 100*time.Millisecond || cfg.SavedGamesTTL != 24*time.Hour {
		t.Fatalf("durations = %v %v %v", cfg.PerMove, cfg.Tick, cfg.SavedGamesTTL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"not a number":     {"ENGINE_DEPTH", "deep"},
		"negative max":     {"SAVED_GAMES_MAX", "-1"},
		"negative tick":    {"TURN_TICK_MS", "-5"},
		"engine no limits": {"ENGINE_PATH", "/bin/engine"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	body := "thresholds:\n  blunder: 300\nweights:\n  win_rate: 0.7\n  quality: 0.3\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARENA_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	th := cfg.Thresholds.Merge()
	if th.Blunder != 300 || th.Strong != 150 {
		t.Fatalf("thresholds = %+v", th)
	}
	if cfg.Weights.WinRate != 0.7 || cfg.Weights.Quality != 0.3 {
		t.Fatalf("weights = %+v", cfg.Weights)
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	t.Setenv("ARENA_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Fatalf("err = %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("weights:\n  win_rate: -1\n  quality: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARENA_CONFIG_FILE", path)
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "weights") {
		t.Fatalf("err = %v", err)
	}
}
