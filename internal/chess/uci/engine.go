package uci

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/chess-arena/internal/analysis"
	"github.com/park285/chess-arena/internal/chess"
)

var ErrNoBestMove = errors.New("uci: engine returned no move")

// Evaluation converts the engine score to the scorer's representation.
// "mate 0" means the side to move is already mated.
func (s Score) Evaluation() analysis.Evaluation {
	if !s.HasMate {
		return analysis.CP(s.CP)
	}
	if s.MateIn > 0 {
		return analysis.Mate(s.MateIn, 1)
	}
	return analysis.Mate(-s.MateIn, -1)
}

// Engine runs searches on pooled sessions. It serves both as an evaluation
// source for the move scorer and as a move provider for the turn loop.
type Engine struct {
	pool   *Pool
	limits Limits
}

func NewEngine(pool *Pool, limits Limits) (*Engine, error) {
	if pool == nil {
		return nil, fmt.Errorf("engine pool required")
	}
	if _, err := buildGoTokens(limits); err != nil {
		return nil, err
	}
	return &Engine{pool: pool, limits: limits}, nil
}

func (e *Engine) search(ctx context.Context, pos chess.Position) (SearchResponse, error) {
	session, err := e.pool.Acquire(ctx)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("acquire session: %w", err)
	}
	resp, err := session.Search(ctx, SearchRequest{FEN: pos.FEN(), Limits: e.limits})
	e.pool.Release(session, err)
	return resp, err
}

// Evaluate scores pos for its side to move. A position with no legal moves
// is scored without a search.
func (e *Engine) Evaluate(ctx context.Context, pos chess.Position) (analysis.Evaluation, error) {
	if st := pos.EvaluateStatus(); st.GameOver {
		if st.Reason == chess.Checkmate {
			return analysis.Mate(0, -1), nil
		}
		return analysis.CP(0), nil
	}
	resp, err := e.search(ctx, pos)
	if err != nil {
		return analysis.Evaluation{}, err
	}
	if len(resp.Candidates) == 0 {
		return analysis.Evaluation{}, fmt.Errorf("evaluate %s: no info lines", pos.FEN())
	}
	return resp.Candidates[0].Score.Evaluation(), nil
}

// BestMove asks the engine for a move in pos.
func (e *Engine) BestMove(ctx context.Context, pos chess.Position) (chess.Move, error) {
	resp, err := e.search(ctx, pos)
	if err != nil {
		return chess.Move{}, err
	}
	if resp.BestMove == "" || resp.BestMove == "(none)" || resp.BestMove == "0000" {
		return chess.Move{}, ErrNoBestMove
	}
	return chess.ParseUCI(resp.BestMove)
}

func (e *Engine) Close() error { return e.pool.Close() }
