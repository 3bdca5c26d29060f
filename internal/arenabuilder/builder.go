package arenabuilder

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/arena"
	"github.com/park285/chess-arena/internal/chess/openingbook"
	"github.com/park285/chess-arena/internal/chess/uci"
	"github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/gamestore"
	"github.com/park285/chess-arena/internal/provider"
	"github.com/park285/chess-arena/internal/turnloop"
)

const (
	ProviderEngine = "engine"
	ProviderFirst  = "first"
	ProviderRandom = "random"
	ProviderBook   = "book"
)

var (
	ErrEngineUnavailable = errors.New("ENGINE_PATH is not configured")
	ErrBookUnavailable   = errors.New("OPENING_BOOK_PATH is not configured")
)

type Deps struct {
	Service *arena.Service
	// Engine, Book, Saved and Client are nil when not configured.
	Engine  *uci.Engine
	Book    *openingbook.Book
	Saved   *gamestore.RedisStore
	Records gamestore.RecordStore
	Client  *provider.Client

	closers []func() error
}

// New opens every configured backend. Without DATABASE_URL records are kept
// in memory for the life of the process.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}
	fail := func(err error) (*Deps, error) {
		_ = d.Close()
		return nil, err
	}

	if cfg.EnginePath != "" {
		opts := uci.DefaultOptions
		opts.Threads = cfg.EngineThreads
		opts.HashMB = cfg.EngineHashMB
		pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: cfg.EnginePath, Options: opts})
		if err != nil {
			return fail(fmt.Errorf("init engine pool: %w", err))
		}
		engine, err := uci.NewEngine(pool, uci.Limits{Depth: cfg.EngineDepth, MoveTimeMillis: cfg.EngineMovetimeMS})
		if err != nil {
			_ = pool.Close()
			return fail(fmt.Errorf("init engine: %w", err))
		}
		d.Engine = engine
		d.closers = append(d.closers, engine.Close)
	}

	if cfg.OpeningBookPath != "" {
		book, err := openingbook.LoadFromPath(cfg.OpeningBookPath)
		if err != nil {
			return fail(err)
		}
		d.Book = book
	}

	if cfg.RedisURL != "" {
		rdb, err := gamestore.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fail(fmt.Errorf("init redis: %w", err))
		}
		d.Saved = gamestore.NewRedisStore(rdb, gamestore.RedisOptions{TTL: cfg.SavedGamesTTL})
		d.closers = append(d.closers, rdb.Close)
	}

	if cfg.DatabaseURL != "" {
		repo, err := gamestore.NewPostgresRecords(cfg.DatabaseURL)
		if err != nil {
			return fail(fmt.Errorf("init postgres: %w", err))
		}
		d.closers = append(d.closers, repo.Close)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fail(fmt.Errorf("ensure schema: %w", err))
		}
		d.Records = repo
	} else {
		logger.Info("records_in_memory", zap.String("reason", "DATABASE_URL not set"))
		d.Records = gamestore.NewMemoryRecords()
	}

	if cfg.ModelEndpoint != "" {
		d.Client = provider.NewClient(cfg.ModelEndpoint, provider.WithTimeout(cfg.ModelTimeout))
	}

	var (
		eval  arena.Evaluator
		saved arena.SavedGames
	)
	if d.Engine != nil {
		eval = d.Engine
	}
	if d.Saved != nil {
		saved = d.Saved
	}
	d.Service = arena.NewService(arena.Config{
		PerMove:       cfg.PerMove,
		Tick:          cfg.Tick,
		Thresholds:    cfg.Thresholds,
		SavedGamesMax: cfg.SavedGamesMax,
	}, eval, saved, d.Records)
	return d, nil
}

// Provider resolves a player name: "engine", "first", "random" (optionally
// "random:<seed>"), "book:<fallback player>", or any other string as a
// remote model id.
func (d *Deps) Provider(name string) (turnloop.Provider, error) {
	name = strings.TrimSpace(name)
	kind, arg, _ := strings.Cut(name, ":")
	switch strings.ToLower(kind) {
	case "":
		return nil, fmt.Errorf("empty player name")
	case ProviderEngine:
		if d.Engine == nil {
			return nil, ErrEngineUnavailable
		}
		return provider.Engine(d.Engine), nil
	case ProviderFirst:
		return provider.First(), nil
	case ProviderRandom:
		return provider.Random(seedFor(arg)), nil
	case ProviderBook:
		if d.Book == nil {
			return nil, ErrBookUnavailable
		}
		if arg == "" {
			arg = ProviderFirst
		}
		fallback, err := d.Provider(arg)
		if err != nil {
			return nil, fmt.Errorf("book fallback: %w", err)
		}
		return provider.Book(d.Book, fallback), nil
	}
	if d.Client == nil {
		return nil, fmt.Errorf("model %q needs MODEL_ENDPOINT", name)
	}
	return provider.NewRemote(d.Client, name), nil
}

func seedFor(arg string) uint64 {
	if arg == "" {
		return uint64(time.Now().UnixNano())
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(arg))
	return h.Sum64()
}

// Close releases backends in reverse order of opening.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
