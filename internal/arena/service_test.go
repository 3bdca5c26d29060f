package arena

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-arena/internal/analysis"
	"github.com/park285/chess-arena/internal/chess"
	"github.com/park285/chess-arena/internal/gamestore"
	"github.com/park285/chess-arena/internal/match"
	"github.com/park285/chess-arena/internal/turnloop"
)

func scripted(t *testing.T, ucis ...string) turnloop.Provider {
	t.Helper()
	moves := make([]chess.Move, 0, len(ucis))
	for _, u := range ucis {
		m, err := chess.ParseUCI(u)
		if err != nil {
			t.Fatalf("ParseUCI(%q): %v", u, err)
		}
		moves = append(moves, m)
	}
	var mu sync.Mutex
	return turnloop.ProviderFunc(func(ctx context.Context, _ turnloop.TurnContext) (chess.Move, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(moves) == 0 {
			<-ctx.Done()
			return chess.Move{}, ctx.Err()
		}
		m := moves[0]
		moves = moves[1:]
		return m, nil
	})
}

func stalling() turnloop.Provider {
	return turnloop.ProviderFunc(func(ctx context.Context, _ turnloop.TurnContext) (chess.Move, error) {
		<-ctx.Done()
		return chess.Move{}, ctx.Err()
	})
}

// flatEval scores every live position as level and mated positions as lost.
type flatEval struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *flatEval) Evaluate(_ context.Context, pos chess.Position) (analysis.Evaluation, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail {
		return analysis.Evaluation{}, errors.New("engine down")
	}
	if st := pos.EvaluateStatus(); st.GameOver && st.Reason == chess.Checkmate {
		return analysis.Mate(0, -1), nil
	}
	return analysis.CP(0), nil
}

func testMatch() match.Match {
	return match.Match{
		ID:    "game-1",
		White: match.Side{ID: "alpha", Name: "Alpha"},
		Black: match.Side{ID: "beta", Name: "Beta"},
	}
}

func newRedisStore(t *testing.T) *gamestore.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return gamestore.NewRedisStore(rdb, gamestore.RedisOptions{})
}

func TestPlayFoolsMate(t *testing.T) {
	eval := &flatEval{}
	saved := newRedisStore(t)
	records := gamestore.NewMemoryRecords()
	svc := NewService(Config{PerMove: time.Second, Tick: 10 * time.Millisecond, SavedGamesMax: 5}, eval, saved, records)

	var moves int
	rep, err := svc.Play(context.Background(), testMatch(),
		scripted(t, "f2f3", "g2g4"),
		scripted(t, "e7e5", "d8h4"),
		turnloop.Callbacks{OnMove: func(turnloop.MoveEvent) { moves++ }},
	)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if rep.Reason != turnloop.EndCheckmate || rep.Result != chess.ResultBlackWin {
		t.Fatalf("reason=%s result=%s", rep.Reason, rep.Result)
	}
	if moves != 4 || len(rep.Plies) != 4 || rep.Plies[3].SAN != "Qh4#" {
		t.Fatalf("plies = %+v (callbacks %d)", rep.Plies, moves)
	}
	if eval.calls != 5 {
		t.Fatalf("evaluator calls = %d, want 5", eval.calls)
	}
	if len(rep.Scores) != 4 || rep.Scores[3].Classification != analysis.MateWin {
		t.Fatalf("scores = %+v", rep.Scores)
	}
	if rep.Annotations[3].ModelID != "beta" || rep.Annotations[0].ModelID != "alpha" {
		t.Fatalf("annotations = %+v", rep.Annotations)
	}

	if !rep.Recorded || rep.White.Outcome != analysis.Loss || rep.Black.Outcome != analysis.Win {
		t.Fatalf("records = %+v / %+v", rep.White, rep.Black)
	}
	if rep.Black.StrongMoves != 1 || rep.Black.TotalMoves != 2 || rep.White.TotalMoves != 2 {
		t.Fatalf("black record = %+v", rep.Black)
	}

	if rep.Saved == nil {
		t.Fatalf("game not saved")
	}
	loaded, err := saved.Load(context.Background(), rep.Saved.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Import.Position != rep.Final || loaded.Meta.Title != "Alpha vs Beta" {
		t.Fatalf("loaded = %+v", loaded.Meta)
	}

	recs, err := records.ListRecords(context.Background(), time.Time{})
	if err != nil || len(recs) != 2 {
		t.Fatalf("records = %+v, %v", recs, err)
	}
	ranked := analysis.Rank(analysis.Aggregate(recs), nil)
	if ranked[0].ModelID != "beta" {
		t.Fatalf("ranking = %+v", ranked)
	}
}

func TestPlayTimeoutLosesForSideToMove(t *testing.T) {
	svc := NewService(Config{PerMove: 50 * time.Millisecond, Tick: 10 * time.Millisecond}, nil, nil, nil)
	rep, err := svc.Play(context.Background(), testMatch(), scripted(t, "e2e4"), stalling(), turnloop.Callbacks{})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if rep.Reason != turnloop.EndTimeout || rep.Result != chess.ResultWhiteWin {
		t.Fatalf("reason=%s result=%s", rep.Reason, rep.Result)
	}
	if !rep.Recorded || rep.White.Outcome != analysis.Win || len(rep.Scores) != 0 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestPlayStoppedIsNotRecorded(t *testing.T) {
	records := gamestore.NewMemoryRecords()
	svc := NewService(Config{PerMove: 10 * time.Second, Tick: 10 * time.Millisecond}, nil, nil, records)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rep, err := svc.Play(ctx, testMatch(), stalling(), stalling(), turnloop.Callbacks{})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if rep.Reason != turnloop.EndStopped || rep.Result != chess.ResultOngoing || rep.Recorded {
		t.Fatalf("report = %+v", rep)
	}
	if recs, _ := records.ListRecords(context.Background(), time.Time{}); len(recs) != 0 {
		t.Fatalf("stopped game recorded: %+v", recs)
	}
}

func TestPlayEvaluatorFailureKeepsGame(t *testing.T) {
	svc := NewService(Config{PerMove: time.Second, Tick: 10 * time.Millisecond}, &flatEval{fail: true}, nil, nil)
	rep, err := svc.Play(context.Background(), testMatch(),
		scripted(t, "f2f3", "g2g4"),
		scripted(t, "e7e5", "d8h4"),
		turnloop.Callbacks{},
	)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(rep.Scores) != 0 || rep.Black.Outcome != analysis.Win {
		t.Fatalf("report = %+v", rep)
	}
}

func TestPlayRequiresProviders(t *testing.T) {
	svc := NewService(Config{}, nil, nil, nil)
	if _, err := svc.Play(context.Background(), testMatch(), nil, stalling(), turnloop.Callbacks{}); !errors.Is(err, ErrMissingProvider) {
		t.Fatalf("err = %v", err)
	}
}
