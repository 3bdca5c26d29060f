package gamestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/chess"
	"github.com/park285/chess-arena/internal/chess/gameio"
	"github.com/park285/chess-arena/internal/obslog"
)

// RecordVersion is the saved-game envelope version, independent of the
// export payload version inside it.
const RecordVersion = 1

const defaultPrefix = "arena:games"

var (
	ErrNotFound       = errors.New("gamestore: game not found")
	ErrInvalidVersion = errors.New("gamestore: unsupported record version")
	ErrSchemaInvalid  = errors.New("gamestore: record does not match schema")
)

type SavedGameMeta struct {
	ID        string    `json:"id" validate:"required"`
	Title     string    `json:"title" validate:"required"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
	Version   int       `json:"version"`
}

type SavedGame struct {
	SavedGameMeta
	Payload gameio.GameExport `json:"payload"`
	PGN     string            `json:"pgn,omitempty"`
}

type SaveInput struct {
	Title    string
	Position chess.Position
	SANs     []string
	Moves    []chess.Move
	Metadata *gameio.Metadata
	// PGNText is stored as is when set; otherwise it is rendered from SANs.
	PGNText string
}

type LoadedGame struct {
	Meta   SavedGameMeta
	Import gameio.ImportResult
	PGN    string
}

type RedisOptions struct {
	Prefix string
	// TTL expires records; zero keeps them until pruned or deleted.
	TTL time.Duration
}

// RedisStore keeps saved games as JSON records plus a sorted-set index
// scored by creation time.
type RedisStore struct {
	rdb      *redis.Client
	prefix   string
	ttl      time.Duration
	now      func() time.Time
	newID    func() string
	validate *validator.Validate
	log      *zap.Logger
}

func NewRedisStore(rdb *redis.Client, opts RedisOptions) *RedisStore {
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisStore{
		rdb:      rdb,
		prefix:   prefix,
		ttl:      opts.TTL,
		now:      time.Now,
		newID:    uuid.NewString,
		validate: validator.New(),
		log:      obslog.L().With(zap.String("component", "gamestore")),
	}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for saved games")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) keyRecord(id string) string {
	return s.prefix + ":record:" + strings.TrimSpace(id)
}

func (s *RedisStore) keyIndex() string { return s.prefix + ":index" }

// DefaultTitle is "Game YYYY-MM-DD HH:MM" in local time.
func DefaultTitle(t time.Time) string {
	return "Game " + t.Local().Format("2006-01-02 15:04")
}

func (s *RedisStore) Save(ctx context.Context, in SaveInput) (SavedGameMeta, error) {
	if in.SANs == nil {
		in.SANs = []string{}
	}
	payload, err := gameio.ExportJSON(in.Position, in.SANs, gameio.ExportOptions{Metadata: in.Metadata, Moves: in.Moves})
	if err != nil {
		return SavedGameMeta{}, fmt.Errorf("%w: %w", ErrSchemaInvalid, err)
	}
	pgn := in.PGNText
	if pgn == "" {
		if pgn, err = gameio.ExportPGN(in.SANs, gameio.ExportOptions{Metadata: in.Metadata}); err != nil {
			return SavedGameMeta{}, fmt.Errorf("%w: %w", ErrSchemaInvalid, err)
		}
	}

	now := s.now()
	meta := SavedGameMeta{
		ID:        s.newID(),
		Title:     strings.TrimSpace(in.Title),
		CreatedAt: now.UTC(),
		Version:   RecordVersion,
	}
	if meta.Title == "" {
		meta.Title = DefaultTitle(now)
	}
	if err := s.validate.Struct(meta); err != nil {
		return SavedGameMeta{}, fmt.Errorf("%w: %w", ErrSchemaInvalid, err)
	}

	raw, err := json.Marshal(SavedGame{SavedGameMeta: meta, Payload: payload, PGN: pgn})
	if err != nil {
		return SavedGameMeta{}, fmt.Errorf("marshal record: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyRecord(meta.ID), raw, s.ttl)
	pipe.ZAdd(ctx, s.keyIndex(), redis.Z{Score: float64(meta.CreatedAt.UnixNano()), Member: meta.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("gamestore_save_failed", zap.String("id", meta.ID), zap.Error(err))
		return SavedGameMeta{}, fmt.Errorf("save game: %w", err)
	}
	s.log.Info("gamestore_saved", zap.String("id", meta.ID), zap.String("title", meta.Title), zap.Int("plies", len(in.SANs)))
	return meta, nil
}

func (s *RedisStore) read(ctx context.Context, id string) (SavedGame, error) {
	raw, err := s.rdb.Get(ctx, s.keyRecord(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return SavedGame{}, ErrNotFound
	}
	if err != nil {
		return SavedGame{}, err
	}
	var rec SavedGame
	if err := json.Unmarshal(raw, &rec); err != nil {
		return SavedGame{}, fmt.Errorf("%w: %w", ErrSchemaInvalid, err)
	}
	return rec, nil
}

// Load reads a record and replays its payload.
func (s *RedisStore) Load(ctx context.Context, id string) (LoadedGame, error) {
	rec, err := s.read(ctx, id)
	if err != nil {
		return LoadedGame{}, err
	}
	if rec.Version != RecordVersion {
		return LoadedGame{}, fmt.Errorf("%w: record version %d", ErrInvalidVersion, rec.Version)
	}
	if rec.Payload.Version != gameio.ExportVersion {
		return LoadedGame{}, fmt.Errorf("%w: payload version %d", ErrInvalidVersion, rec.Payload.Version)
	}
	imported, err := gameio.ImportJSON(rec.Payload, gameio.ImportOptions{})
	if err != nil {
		return LoadedGame{}, fmt.Errorf("%w: %w", ErrSchemaInvalid, err)
	}
	return LoadedGame{Meta: rec.SavedGameMeta, Import: imported, PGN: rec.PGN}, nil
}

// List returns saved games newest first. Index entries whose record has
// expired are dropped from the index.
func (s *RedisStore) List(ctx context.Context) ([]SavedGameMeta, error) {
	ids, err := s.rdb.ZRevRange(ctx, s.keyIndex(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []SavedGameMeta{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keyRecord(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]SavedGameMeta, 0, len(ids))
	var stale []any
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var meta SavedGameMeta
		if err := json.Unmarshal([]byte(str), &meta); err != nil || s.validate.Struct(meta) != nil {
			s.log.Warn("gamestore_corrupt_record", zap.String("id", ids[i]))
			continue
		}
		out = append(out, meta)
	}
	if len(stale) > 0 {
		if err := s.rdb.ZRem(ctx, s.keyIndex(), stale...).Err(); err != nil {
			s.log.Warn("gamestore_index_cleanup_failed", zap.Error(err))
		}
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.keyRecord(id))
	pipe.ZRem(ctx, s.keyIndex(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// Prune keeps the newest maxEntries games. A non-positive limit is a no-op.
func (s *RedisStore) Prune(ctx context.Context, maxEntries int) (int, error) {
	if maxEntries <= 0 {
		return 0, nil
	}
	drop, err := s.rdb.ZRevRange(ctx, s.keyIndex(), int64(maxEntries), -1).Result()
	if err != nil {
		return 0, err
	}
	if len(drop) == 0 {
		return 0, nil
	}
	pipe := s.rdb.TxPipeline()
	members := make([]any, len(drop))
	for i, id := range drop {
		pipe.Del(ctx, s.keyRecord(id))
		members[i] = id
	}
	pipe.ZRem(ctx, s.keyIndex(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	s.log.Info("gamestore_pruned", zap.Int("removed", len(drop)), zap.Int("kept", maxEntries))
	return len(drop), nil
}

// Clear removes every key under the store prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}
