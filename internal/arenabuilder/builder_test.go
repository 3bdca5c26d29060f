package arenabuilder

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/gamestore"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{EngineThreads: 1, EngineHashMB: 16}
}

func TestNewMinimal(t *testing.T) {
	d, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if d.Engine != nil || d.Saved != nil || d.Client != nil || d.Service == nil {
		t.Fatalf("unexpected deps: %+v", d)
	}
	if _, ok := d.Records.(*gamestore.MemoryRecords); !ok {
		t.Fatalf("records = %T", d.Records)
	}

	for _, name := range []string{"first", "random", "Random:42"} {
		if p, err := d.Provider(name); err != nil || p == nil {
			t.Fatalf("Provider(%q) = %v, %v", name, p, err)
		}
	}
	if _, err := d.Provider("engine"); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("engine err = %v", err)
	}
	if _, err := d.Provider("openai/gpt-4o"); err == nil {
		t.Fatal("remote model without endpoint should fail")
	}
	if _, err := d.Provider("book:random"); !errors.Is(err, ErrBookUnavailable) {
		t.Fatalf("book err = %v", err)
	}
	if _, err := d.Provider(" "); err == nil {
		t.Fatal("empty name should fail")
	}
}

func TestNewWithRedisAndEndpoint(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	cfg.ModelEndpoint = "http://127.0.0.1:1"

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Saved == nil || d.Client == nil {
		t.Fatalf("deps = %+v", d)
	}
	if p, err := d.Provider("openai/gpt-4o"); err != nil || p == nil {
		t.Fatalf("remote provider: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewFailsOnMissingEngine(t *testing.T) {
	cfg := baseConfig()
	cfg.EnginePath = "/nonexistent/engine"
	cfg.EngineDepth = 8
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected engine init error")
	}
}

func TestNewFailsOnMissingBook(t *testing.T) {
	cfg := baseConfig()
	cfg.OpeningBookPath = "/nonexistent/book.bin"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected book load error")
	}
}

func TestSeedFor(t *testing.T) {
	if seedFor("abc") != seedFor("abc") || seedFor("abc") == seedFor("abd") {
		t.Fatal("seedFor must be deterministic per argument")
	}
}
