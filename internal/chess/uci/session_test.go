package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/chess-arena/internal/analysis"
	"github.com/park285/chess-arena/internal/chess"
)

// fakeEngine answers the handshake and replies to "go" with canned lines.
type fakeEngine struct {
	mu       sync.Mutex
	received []string
	reply    func(position string) []string
	position string
}

func (f *fakeEngine) serve(cmds io.Reader, out io.WriteCloser) {
	defer out.Close()
	sc := bufio.NewScanner(cmds)
	for sc.Scan() {
		line := sc.Text()
		f.mu.Lock()
		f.received = append(f.received, line)
		f.mu.Unlock()
		switch {
		case line == "uci":
			fmt.Fprintln(out, "id name fake")
			fmt.Fprintln(out, "uciok")
		case line == "isready":
			fmt.Fprintln(out, "readyok")
		case strings.HasPrefix(line, "position "):
			f.position = line
		case strings.HasPrefix(line, "go"):
			for _, l := range f.reply(f.position) {
				fmt.Fprintln(out, l)
			}
		case line == "quit":
			return
		}
	}
}

func (f *fakeEngine) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func dialFake(f *fakeEngine) DialFunc {
	return func(ctx context.Context, opt Options) (*Session, error) {
		cmdR, cmdW := io.Pipe()
		outR, outW := io.Pipe()
		go f.serve(cmdR, outW)
		return NewSessionIO(ctx, cmdW, outR, opt)
	}
}

func TestSessionSearch(t *testing.T) {
	f := &fakeEngine{reply: func(string) []string {
		return []string{
			"info depth 10 multipv 1 score cp 34 nodes 1000 pv e2e4 e7e5",
			"info depth 10 multipv 2 score cp 20 pv d2d4 d7d5",
			"info depth 12 multipv 1 score cp 41 pv e2e4 c7c5 g1f3",
			"bestmove e2e4 ponder c7c5",
		}
	}}
	s, err := dialFake(f)(context.Background(), Options{Threads: 2, SkillLevel: 20, HashMB: 32, MultiPV: 2, Elo: 1800})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()

	resp, err := s.Search(context.Background(), SearchRequest{Limits: Limits{Depth: 12}, Moves: []string{"g1f3"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.BestMove != "e2e4" || len(resp.Candidates) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if c := resp.Candidates[0]; c.Score.CP != 41 || len(c.Principal) != 3 {
		t.Fatalf("first candidate = %+v", c)
	}

	sent := strings.Join(f.sent(), "\n")
	for _, want := range []string{
		"setoption name Threads value 2",
		"setoption name MultiPV value 2",
		"setoption name UCI_Elo value 1800",
		"position startpos moves g1f3",
		"go depth 12",
	} {
		if !strings.Contains(sent, want) {
			t.Errorf("engine never received %q", want)
		}
	}
}

func TestSearchNeedsLimits(t *testing.T) {
	f := &fakeEngine{reply: func(string) []string { return nil }}
	s, err := dialFake(f)(context.Background(), DefaultOptions)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()
	if _, err := s.Search(context.Background(), SearchRequest{}); !errors.Is(err, ErrNoSearchLimits) {
		t.Fatalf("err = %v", err)
	}
}

func TestSearchHonorsContext(t *testing.T) {
	f := &fakeEngine{reply: func(string) []string { return []string{"info depth 1 score cp 3 pv e2e4"} }}
	s, err := dialFake(f)(context.Background(), DefaultOptions)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := s.Search(ctx, SearchRequest{Limits: Limits{Depth: 5}}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseInfo(t *testing.T) {
	cases := []struct {
		line string
		pv   int
		want Score
		ok   bool
	}{
		{"info depth 8 score cp -15 pv e7e5", 1, Score{CP: -15}, true},
		{"info depth 20 multipv 3 score mate 4 pv d1h5", 3, Score{MateIn: 4, HasMate: true}, true},
		{"info depth 20 score mate -2 pv g8f6", 1, Score{MateIn: -2, HasMate: true}, true},
		{"info depth 5 score cp 10 nodes 100", 0, Score{}, false},
		{"info string hello", 0, Score{}, false},
	}
	for _, tc := range cases {
		pv, cand, ok := parseInfo(tc.line)
		if ok != tc.ok || pv != tc.pv || (ok && cand.Score != tc.want) {
			t.Errorf("parseInfo(%q) = %d %+v %v", tc.line, pv, cand, ok)
		}
	}
}

func TestScoreEvaluation(t *testing.T) {
	cases := []struct {
		in   Score
		want analysis.Evaluation
	}{
		{Score{CP: 25}, analysis.CP(25)},
		{Score{MateIn: 3, HasMate: true}, analysis.Mate(3, 1)},
		{Score{MateIn: -1, HasMate: true}, analysis.Mate(1, -1)},
		{Score{MateIn: 0, HasMate: true}, analysis.Mate(0, -1)},
	}
	for _, tc := range cases {
		if got := tc.in.Evaluation(); got != tc.want {
			t.Errorf("%+v.Evaluation() = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestEngineThroughPool(t *testing.T) {
	f := &fakeEngine{reply: func(pos string) []string {
		if strings.Contains(pos, "fen") {
			return []string{"info depth 3 score mate -1 pv g8h8", "bestmove g8h8"}
		}
		return []string{"info depth 3 score cp 18 pv g1f3", "bestmove g1f3"}
	}}
	pool, err := NewPool(PoolConfig{Dial: dialFake(f), Options: DefaultOptions, Size: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	eng, err := NewEngine(pool, Limits{Depth: 3})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer eng.Close()

	ctx := context.Background()
	// Starting position is sent as a FEN too.
	start := chess.StartingPosition()
	ev, err := eng.Evaluate(ctx, start)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev != analysis.Mate(1, -1) {
		t.Fatalf("eval = %+v", ev)
	}
	m, err := eng.BestMove(ctx, start)
	if err != nil || m.UCI() != "g8h8" {
		t.Fatalf("BestMove = %v, %v", m, err)
	}

	mated, err := chess.ParseFEN("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if ev, err := eng.Evaluate(ctx, mated); err != nil || ev != analysis.Mate(0, -1) {
		t.Fatalf("mated eval = %+v, %v", ev, err)
	}
}

func TestNewEngineRejectsMissingLimits(t *testing.T) {
	pool, err := NewPool(PoolConfig{Dial: dialFake(&fakeEngine{}), Options: DefaultOptions})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if _, err := NewEngine(pool, Limits{}); !errors.Is(err, ErrNoSearchLimits) {
		t.Fatalf("err = %v", err)
	}
}
