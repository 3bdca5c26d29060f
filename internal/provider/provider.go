// Package provider adapts move sources to the turn loop's Provider contract.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/chess"
	"github.com/park285/chess-arena/internal/chess/openingbook"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/turnloop"
)

var ErrNoLegalMoves = errors.New("provider: no legal moves")

// First always plays the first legal move in generation order.
func First() turnloop.Provider {
	return turnloop.ProviderFunc(func(_ context.Context, tc turnloop.TurnContext) (chess.Move, error) {
		moves := tc.Position.LegalMoves(tc.Position.Turn)
		if len(moves) == 0 {
			return chess.Move{}, ErrNoLegalMoves
		}
		return moves[0], nil
	})
}

// Random picks uniformly among legal moves with a seeded source.
func Random(seed uint64) turnloop.Provider {
	var mu sync.Mutex
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return turnloop.ProviderFunc(func(_ context.Context, tc turnloop.TurnContext) (chess.Move, error) {
		moves := tc.Position.LegalMoves(tc.Position.Turn)
		if len(moves) == 0 {
			return chess.Move{}, ErrNoLegalMoves
		}
		mu.Lock()
		i := rng.IntN(len(moves))
		mu.Unlock()
		return moves[i], nil
	})
}

// BestMover is satisfied by *uci.Engine.
type BestMover interface {
	BestMove(ctx context.Context, pos chess.Position) (chess.Move, error)
}

func Engine(e BestMover) turnloop.Provider {
	return turnloop.ProviderFunc(func(ctx context.Context, tc turnloop.TurnContext) (chess.Move, error) {
		return e.BestMove(ctx, tc.Position)
	})
}

// Remote asks a model gateway for each move.
type Remote struct {
	client *Client
	model  string
	log    *zap.Logger
}

func NewRemote(client *Client, model string) *Remote {
	return &Remote{
		client: client,
		model:  model,
		log:    obslog.L().With(zap.String("component", "provider"), zap.String("model", model)),
	}
}

func (r *Remote) NextMove(ctx context.Context, tc turnloop.TurnContext) (chess.Move, error) {
	pos := tc.Position
	legal := pos.LegalMoves(pos.Turn)
	if len(legal) == 0 {
		return chess.Move{}, ErrNoLegalMoves
	}
	req := MoveRequest{
		Model:      r.model,
		FEN:        pos.FEN(),
		Side:       pos.Turn.String(),
		LegalMoves: make([]string, 0, len(legal)),
	}
	for _, m := range legal {
		req.LegalMoves = append(req.LegalMoves, m.UCI())
	}
	if tc.PGN != nil {
		req.History = tc.PGN.SANs()
		req.PGN = tc.PGN.Movetext()
	}

	resp, err := r.client.RequestMove(ctx, req)
	if err != nil {
		r.log.Warn("provider_request_failed", zap.Int("ply", tc.Ply), zap.Error(err))
		return chess.Move{}, err
	}
	m, err := ResolveMove(pos, resp.Move)
	if err != nil {
		r.log.Warn("provider_unparsable_move", zap.String("text", resp.Move), zap.Error(err))
		return chess.Move{}, err
	}
	return m, nil
}

// ResolveMove reads text as UCI, falling back to SAN against pos. The
// result is not checked for legality; the turn loop does that.
func ResolveMove(pos chess.Position, text string) (chess.Move, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chess.Move{}, fmt.Errorf("empty move text")
	}
	if m, err := chess.ParseUCI(strings.ToLower(text)); err == nil {
		return m, nil
	}
	return pos.MoveFromSAN(text)
}

// BookLookup is satisfied by *openingbook.Book.
type BookLookup interface {
	Lookup(pos chess.Position) (openingbook.Result, bool, error)
}

// Book plays from the opening book and hands over to fallback once the game
// leaves it.
func Book(book BookLookup, fallback turnloop.Provider) turnloop.Provider {
	log := obslog.L().With(zap.String("component", "provider"), zap.String("kind", "book"))
	return turnloop.ProviderFunc(func(ctx context.Context, tc turnloop.TurnContext) (chess.Move, error) {
		res, ok, err := book.Lookup(tc.Position)
		if err != nil {
			log.Warn("book_lookup_failed", zap.Error(err))
		}
		if ok {
			return res.Move, nil
		}
		return fallback.NextMove(ctx, tc)
	})
}
