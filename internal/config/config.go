package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/park285/chess-arena/internal/analysis"
)

type AppConfig struct {
	RedisURL    string
	DatabaseURL string

	EnginePath       string
	EngineThreads    int
	EngineHashMB     int
	EngineDepth      int
	EngineMovetimeMS int

	// OpeningBookPath is a Polyglot .bin file for the "book" player.
	OpeningBookPath string

	PerMove time.Duration
	Tick    time.Duration

	SavedGamesMax int
	SavedGamesTTL time.Duration

	ModelEndpoint string
	ModelTimeout  time.Duration

	// MessagesDir holds report template overrides.
	MessagesDir string

	// Filled from ARENA_CONFIG_FILE when set.
	Thresholds *analysis.ThresholdOverrides
	Weights    analysis.Weights
}

// FileConfig is the optional YAML overlay.
type FileConfig struct {
	Thresholds *analysis.ThresholdOverrides `yaml:"thresholds"`
	Weights    *analysis.Weights            `yaml:"weights"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		EngineThreads: 1,
		EngineHashMB:  16,
		PerMove:       30 * time.Second,
		Tick:          500 * time.Millisecond,
		SavedGamesMax: 50,
		ModelTimeout:  20 * time.Second,
		Weights:       analysis.DefaultWeights,
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.EnginePath = strings.TrimSpace(os.Getenv("ENGINE_PATH"))
	cfg.OpeningBookPath = strings.TrimSpace(os.Getenv("OPENING_BOOK_PATH"))
	cfg.ModelEndpoint = strings.TrimSpace(os.Getenv("MODEL_ENDPOINT"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("ARENA_MESSAGES_DIR"))

	var err error
	ints := []struct {
		key string
		dst *int
	}{
		{"ENGINE_THREADS", &cfg.EngineThreads},
		{"ENGINE_HASH_MB", &cfg.EngineHashMB},
		{"ENGINE_DEPTH", &cfg.EngineDepth},
		{"ENGINE_MOVETIME_MS", &cfg.EngineMovetimeMS},
		{"SAVED_GAMES_MAX", &cfg.SavedGamesMax},
	}
	for _, it := range ints {
		if err = envInt(it.key, it.dst); err != nil {
			return nil, err
		}
	}

	durations := []struct {
		key  string
		unit time.Duration
		dst  *time.Duration
	}{
		{"TURN_PER_MOVE_SECONDS", time.Second, &cfg.PerMove},
		{"TURN_TICK_MS", time.Millisecond, &cfg.Tick},
		{"SAVED_GAMES_TTL_HOURS", time.Hour, &cfg.SavedGamesTTL},
		{"MODEL_TIMEOUT_MS", time.Millisecond, &cfg.ModelTimeout},
	}
	for _, d := range durations {
		var n int
		if err = envInt(d.key, &n); err != nil {
			return nil, err
		}
		if n != 0 {
			*d.dst = time.Duration(n) * d.unit
		}
	}

	if path := strings.TrimSpace(os.Getenv("ARENA_CONFIG_FILE")); path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Thresholds = fc.Thresholds
		if fc.Weights != nil {
			cfg.Weights = *fc.Weights
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envInt leaves dst untouched when key is unset.
func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func LoadFile(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// Validate checks ranges; an engine needs at least one search limit.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.PerMove <= 0 {
		errs = append(errs, errors.New("TURN_PER_MOVE_SECONDS must be positive"))
	}
	if c.Tick <= 0 {
		errs = append(errs, errors.New("TURN_TICK_MS must be positive"))
	}
	if c.ModelTimeout <= 0 {
		errs = append(errs, errors.New("MODEL_TIMEOUT_MS must be positive"))
	}
	if c.SavedGamesMax < 0 {
		errs = append(errs, errors.New("SAVED_GAMES_MAX must not be negative"))
	}
	if c.SavedGamesTTL < 0 {
		errs = append(errs, errors.New("SAVED_GAMES_TTL_HOURS must not be negative"))
	}
	if c.EngineThreads < 1 || c.EngineHashMB < 1 {
		errs = append(errs, errors.New("ENGINE_THREADS and ENGINE_HASH_MB must be at least 1"))
	}
	if c.EngineDepth < 0 || c.EngineMovetimeMS < 0 {
		errs = append(errs, errors.New("ENGINE_DEPTH and ENGINE_MOVETIME_MS must not be negative"))
	}
	if c.EnginePath != "" && c.EngineDepth == 0 && c.EngineMovetimeMS == 0 {
		errs = append(errs, errors.New("ENGINE_PATH needs ENGINE_DEPTH or ENGINE_MOVETIME_MS"))
	}
	w := c.Weights
	if w.WinRate < 0 || w.Quality < 0 || math.IsNaN(w.WinRate) || math.IsNaN(w.Quality) || w.WinRate+w.Quality == 0 {
		errs = append(errs, errors.New("weights must be non-negative with a positive sum"))
	}
	if t := c.Thresholds.Merge(); t.Strong < 0 || t.Accurate < 0 || t.Inaccuracy < 0 || t.Mistake < 0 || t.Blunder < 0 {
		errs = append(errs, errors.New("thresholds must not be negative"))
	}
	return errors.Join(errs...)
}
