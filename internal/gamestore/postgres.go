package gamestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/chess-arena/internal/analysis"
	"github.com/park285/chess-arena/internal/chess"
)

// FinishedGame is one arena game ready to persist. White and Black are the
// per-side ranking records.
type FinishedGame struct {
	GameID    string
	White     analysis.GameRecord
	Black     analysis.GameRecord
	Result    string
	Reason    string
	SANs      []string
	PGN       string
	StartedAt time.Time
	EndedAt   time.Time
}

// PostgresRecords stores finished-game records that feed model ranking.
type PostgresRecords struct {
	db *sql.DB
}

func NewPostgresRecords(databaseURL string) (*PostgresRecords, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresRecords{db: db}, nil
}

func (r *PostgresRecords) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS arena_games (
    game_id     TEXT PRIMARY KEY,
    white_model TEXT NOT NULL,
    black_model TEXT NOT NULL,
    result      TEXT NOT NULL,
    reason      TEXT NOT NULL,
    moves_san   TEXT NOT NULL,
    pgn         TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    ended_at    TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS arena_game_records (
    game_id      TEXT NOT NULL REFERENCES arena_games(game_id) ON DELETE CASCADE,
    side         TEXT NOT NULL,
    model_id     TEXT NOT NULL,
    opponent_id  TEXT NOT NULL,
    outcome      TEXT NOT NULL,
    strong_moves INT NOT NULL,
    blunders     INT NOT NULL,
    total_moves  INT NOT NULL,
    ended_at     TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (game_id, side)
);
CREATE INDEX IF NOT EXISTS arena_game_records_ended_idx ON arena_game_records (ended_at);`

func (r *PostgresRecords) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schemaSQL)
	return err
}

// SaveGame upserts the game row and both side records in one transaction.
func (r *PostgresRecords) SaveGame(ctx context.Context, g FinishedGame) error {
	if r == nil || r.db == nil {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	duration := max(g.EndedAt.Sub(g.StartedAt).Milliseconds(), 0)
	_, err = tx.ExecContext(ctx, `INSERT INTO arena_games (
        game_id, white_model, black_model, result, reason, moves_san, pgn, started_at, ended_at, duration_ms
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
      ON CONFLICT (game_id) DO UPDATE SET
        white_model=EXCLUDED.white_model,
        black_model=EXCLUDED.black_model,
        result=EXCLUDED.result,
        reason=EXCLUDED.reason,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`,
		g.GameID, g.White.ModelID, g.Black.ModelID, g.Result, g.Reason,
		strings.Join(g.SANs, " "), g.PGN, g.StartedAt, g.EndedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}

	for _, side := range []struct {
		color chess.Color
		rec   analysis.GameRecord
	}{{chess.White, g.White}, {chess.Black, g.Black}} {
		_, err = tx.ExecContext(ctx, `INSERT INTO arena_game_records (
            game_id, side, model_id, opponent_id, outcome, strong_moves, blunders, total_moves, ended_at
          ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
          ON CONFLICT (game_id, side) DO UPDATE SET
            model_id=EXCLUDED.model_id,
            opponent_id=EXCLUDED.opponent_id,
            outcome=EXCLUDED.outcome,
            strong_moves=EXCLUDED.strong_moves,
            blunders=EXCLUDED.blunders,
            total_moves=EXCLUDED.total_moves,
            ended_at=EXCLUDED.ended_at`,
			g.GameID, side.color.String(), side.rec.ModelID, side.rec.OpponentID, side.rec.Outcome.String(),
			side.rec.StrongMoves, side.rec.Blunders, side.rec.TotalMoves, g.EndedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert %s record: %w", side.color, err)
		}
	}
	return tx.Commit()
}

// ListRecords returns per-side records for games that ended at or after
// since; a zero since returns everything.
func (r *PostgresRecords) ListRecords(ctx context.Context, since time.Time) ([]analysis.GameRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT game_id, model_id, opponent_id, outcome, strong_moves, blunders, total_moves
        FROM arena_game_records WHERE ended_at >= $1 ORDER BY ended_at, game_id, side`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analysis.GameRecord
	for rows.Next() {
		var (
			rec     analysis.GameRecord
			outcome string
		)
		if err := rows.Scan(&rec.GameID, &rec.ModelID, &rec.OpponentID, &outcome, &rec.StrongMoves, &rec.Blunders, &rec.TotalMoves); err != nil {
			return nil, err
		}
		if err := rec.Outcome.UnmarshalText([]byte(outcome)); err != nil {
			return nil, fmt.Errorf("game %s: %w", rec.GameID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
