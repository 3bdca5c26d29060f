// Package arena plays one model-vs-model game end to end: the turn loop
// drives the providers, an evaluator scores every ply afterwards, and the
// finished game is written to the configured stores.
package arena

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/analysis"
	"github.com/park285/chess-arena/internal/chess"
	"github.com/park285/chess-arena/internal/chess/gameio"
	"github.com/park285/chess-arena/internal/gamestore"
	"github.com/park285/chess-arena/internal/match"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/turnloop"
)

var ErrMissingProvider = errors.New("arena: both providers are required")

const defaultEvalTimeout = 10 * time.Second

// Evaluator scores a position for its side to move. *uci.Engine satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, pos chess.Position) (analysis.Evaluation, error)
}

type SavedGames interface {
	Save(ctx context.Context, in gamestore.SaveInput) (gamestore.SavedGameMeta, error)
	Prune(ctx context.Context, maxEntries int) (int, error)
}

type Records interface {
	SaveGame(ctx context.Context, g gamestore.FinishedGame) error
}

type Config struct {
	PerMove time.Duration
	Tick    time.Duration
	Event   string
	// EvalTimeout bounds each position evaluation.
	EvalTimeout time.Duration
	Thresholds  *analysis.ThresholdOverrides
	// SavedGamesMax prunes the saved-game store after each save; zero skips.
	SavedGamesMax int
}

// Service is safe for concurrent Play calls; each call owns its own loop.
type Service struct {
	cfg     Config
	eval    Evaluator
	saved   SavedGames
	records Records
	log     *zap.Logger
	now     func() time.Time
}

// NewService wires the optional collaborators. A nil evaluator skips move
// scoring; nil stores skip persistence.
func NewService(cfg Config, eval Evaluator, saved SavedGames, records Records) *Service {
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = defaultEvalTimeout
	}
	return &Service{
		cfg:     cfg,
		eval:    eval,
		saved:   saved,
		records: records,
		log:     obslog.L().With(zap.String("component", "arena")),
		now:     time.Now,
	}
}

type Ply struct {
	Before chess.Position
	After  chess.Position
	Move   chess.Move
	SAN    string
}

type Report struct {
	GameID      string
	Match       match.Match
	Reason      turnloop.EndReason
	Result      string
	Final       chess.Position
	Plies       []Ply
	PGN         string
	Scores      []analysis.MoveScore
	Annotations []analysis.MoveAnnotation
	White       analysis.GameRecord
	Black       analysis.GameRecord
	// Recorded is false for stopped games, which carry no outcome.
	Recorded  bool
	Saved     *gamestore.SavedGameMeta
	StartedAt time.Time
	EndedAt   time.Time
}

func (r Report) SANs() []string {
	out := make([]string, len(r.Plies))
	for i, p := range r.Plies {
		out[i] = p.SAN
	}
	return out
}

func (r Report) Moves() []chess.Move {
	out := make([]chess.Move, len(r.Plies))
	for i, p := range r.Plies {
		out[i] = p.Move
	}
	return out
}

// Play runs m from the standard starting position until the loop ends or
// ctx is done. Extra callbacks are chained after the service's own.
func (s *Service) Play(ctx context.Context, m match.Match, white, black turnloop.Provider, cb turnloop.Callbacks) (Report, error) {
	if white == nil || black == nil {
		return Report{}, ErrMissingProvider
	}
	gameID := m.ID
	if gameID == "" {
		gameID = uuid.NewString()
	}
	log := s.log.With(zap.String("game_id", gameID))
	started := s.now()

	var (
		mu    sync.Mutex
		plies []Ply
		prev  = chess.StartingPosition()
	)
	onMove := func(ev turnloop.MoveEvent) {
		mu.Lock()
		plies = append(plies, Ply{Before: prev, After: ev.Context.Position, Move: ev.Move, SAN: ev.SAN})
		prev = ev.Context.Position
		mu.Unlock()
		log.Debug("arena_move", zap.Int("ply", ev.Context.Ply), zap.String("san", ev.SAN))
		if cb.OnMove != nil {
			cb.OnMove(ev)
		}
	}

	loop := turnloop.New(turnloop.Config{
		White:   white,
		Black:   black,
		PerMove: s.cfg.PerMove,
		Tick:    s.cfg.Tick,
		Headers: chess.PgnHeaders{
			Event:      s.cfg.Event,
			Date:       chess.PgnDate(started),
			White:      m.White.Name,
			Black:      m.Black.Name,
			WhiteModel: m.White.ID,
			BlackModel: m.Black.ID,
		},
		Callbacks: turnloop.Callbacks{
			OnTick:        cb.OnTick,
			OnMove:        onMove,
			OnStateChange: cb.OnStateChange,
			OnEnd:         cb.OnEnd,
		},
	})
	if err := loop.Start(ctx, turnloop.NewTurnContext(chess.StartingPosition())); err != nil {
		return Report{}, err
	}
	end, err := loop.Wait(ctx)
	if err != nil {
		loop.Stop(turnloop.EndStopped)
		end, _ = loop.Result()
	}

	mu.Lock()
	rep := Report{
		GameID:    gameID,
		Match:     m,
		Reason:    end.Reason,
		Final:     end.Context.Position,
		Plies:     append([]Ply(nil), plies...),
		StartedAt: started,
		EndedAt:   s.now(),
	}
	mu.Unlock()

	rep.Result = resultFor(end)
	rec := chess.PgnRecord{}
	if end.Context.PGN != nil {
		rec = end.Context.PGN.WithResult(rep.Result)
		rec.Headers.Result = rep.Result
	}
	rep.PGN = rec.String()

	log.Info("arena_game_finished",
		zap.String("reason", rep.Reason.String()),
		zap.String("result", rep.Result),
		zap.Int("plies", len(rep.Plies)),
	)

	// Scoring and persistence outlive a cancelled play context.
	bg := context.WithoutCancel(ctx)
	s.score(bg, &rep)
	rep.White, rep.Black, rep.Recorded = buildRecords(rep)
	s.persist(bg, &rep, log)
	return rep, nil
}

// resultFor maps the end reason to a PGN result. The side to move loses on
// timeout or an illegal move.
func resultFor(end turnloop.EndEvent) string {
	switch end.Reason {
	case turnloop.EndCheckmate, turnloop.EndStalemate, turnloop.EndDraw:
		return chess.ResultFor(end.Context.Status)
	case turnloop.EndTimeout, turnloop.EndIllegal:
		if end.Context.Position.Turn == chess.White {
			return chess.ResultBlackWin
		}
		return chess.ResultWhiteWin
	}
	return chess.ResultOngoing
}

// score evaluates every position once and classifies each ply. Scoring
// stops at the first evaluation failure.
func (s *Service) score(ctx context.Context, rep *Report) {
	if s.eval == nil || len(rep.Plies) == 0 {
		return
	}
	evaluate := func(pos chess.Position) (analysis.Evaluation, error) {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.EvalTimeout)
		defer cancel()
		return s.eval.Evaluate(cctx, pos)
	}

	before, err := evaluate(rep.Plies[0].Before)
	if err != nil {
		s.log.Warn("arena_eval_failed", zap.String("game_id", rep.GameID), zap.Int("ply", 0), zap.Error(err))
		return
	}
	for i, p := range rep.Plies {
		after, err := evaluate(p.After)
		if err != nil {
			s.log.Warn("arena_eval_failed", zap.String("game_id", rep.GameID), zap.Int("ply", i+1), zap.Error(err))
			return
		}
		sc := analysis.Score(analysis.ScoreInput{
			Before: before,
			After:  after,
			Color:  p.Before.Turn,
			Meta: &analysis.MoveMeta{
				Ply:      i + 1,
				Fullmove: p.Before.FullmoveNumber,
				SAN:      p.SAN,
			},
			Thresholds: s.cfg.Thresholds,
		})
		modelID := rep.Match.White.ID
		if p.Before.Turn == chess.Black {
			modelID = rep.Match.Black.ID
		}
		rep.Scores = append(rep.Scores, sc)
		rep.Annotations = append(rep.Annotations, analysis.Annotate(rep.GameID, modelID, sc, rep.EndedAt))
		before = after
	}
}

func buildRecords(rep Report) (white, black analysis.GameRecord, ok bool) {
	white = analysis.GameRecord{ModelID: rep.Match.White.ID, OpponentID: rep.Match.Black.ID, GameID: rep.GameID}
	black = analysis.GameRecord{ModelID: rep.Match.Black.ID, OpponentID: rep.Match.White.ID, GameID: rep.GameID}
	for _, p := range rep.Plies {
		if p.Before.Turn == chess.White {
			white.TotalMoves++
		} else {
			black.TotalMoves++
		}
	}
	for _, sc := range rep.Scores {
		rec := &white
		if sc.Color == chess.Black {
			rec = &black
		}
		switch sc.Classification {
		case analysis.Strong, analysis.MateWin:
			rec.StrongMoves++
		case analysis.Blunder, analysis.MateLoss:
			rec.Blunders++
		}
	}
	switch rep.Result {
	case chess.ResultWhiteWin:
		white.Outcome, black.Outcome = analysis.Win, analysis.Loss
	case chess.ResultBlackWin:
		white.Outcome, black.Outcome = analysis.Loss, analysis.Win
	case chess.ResultDraw:
		white.Outcome, black.Outcome = analysis.Draw, analysis.Draw
	default:
		return white, black, false
	}
	return white, black, true
}

func (s *Service) persist(ctx context.Context, rep *Report, log *zap.Logger) {
	if s.saved != nil {
		meta := &gameio.Metadata{
			ModelWhite: rep.Match.White.ID,
			ModelBlack: rep.Match.Black.ID,
			StartTime:  rep.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
			Result:     rep.Result,
		}
		saved, err := s.saved.Save(ctx, gamestore.SaveInput{
			Title:    fmt.Sprintf("%s vs %s", rep.Match.White.Name, rep.Match.Black.Name),
			Position: rep.Final,
			SANs:     rep.SANs(),
			Moves:    rep.Moves(),
			Metadata: meta,
			PGNText:  rep.PGN,
		})
		if err != nil {
			log.Error("arena_save_failed", zap.Error(err))
		} else {
			rep.Saved = &saved
			if s.cfg.SavedGamesMax > 0 {
				if n, err := s.saved.Prune(ctx, s.cfg.SavedGamesMax); err != nil {
					log.Warn("arena_prune_failed", zap.Error(err))
				} else if n > 0 {
					log.Debug("arena_pruned", zap.Int("removed", n))
				}
			}
		}
	}
	if s.records != nil && rep.Recorded {
		err := s.records.SaveGame(ctx, gamestore.FinishedGame{
			GameID:    rep.GameID,
			White:     rep.White,
			Black:     rep.Black,
			Result:    rep.Result,
			Reason:    rep.Reason.String(),
			SANs:      rep.SANs(),
			PGN:       rep.PGN,
			StartedAt: rep.StartedAt,
			EndedAt:   rep.EndedAt,
		})
		if err != nil {
			log.Error("arena_record_failed", zap.Error(err))
		}
	}
}
