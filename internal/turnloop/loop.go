package turnloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/chess"
	"github.com/park285/chess-arena/internal/obslog"
)

type State int

const (
	Idle State = iota
	Running
	Paused
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type EndReason int

const (
	EndNone EndReason = iota
	EndCheckmate
	EndStalemate
	EndDraw
	EndTimeout
	EndIllegal
	EndStopped
)

func (r EndReason) String() string {
	switch r {
	case EndNone:
		return ""
	case EndCheckmate:
		return "checkmate"
	case EndStalemate:
		return "stalemate"
	case EndDraw:
		return "draw"
	case EndTimeout:
		return "timeout"
	case EndIllegal:
		return "illegal"
	case EndStopped:
		return "stopped"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

func endReasonFor(st chess.GameStatus) EndReason {
	switch st.Reason {
	case chess.Checkmate:
		return EndCheckmate
	case chess.Stalemate:
		return EndStalemate
	case chess.FiftyMoveRule:
		return EndDraw
	}
	return EndNone
}

var (
	ErrNotIdle    = errors.New("turnloop: already started")
	ErrNotRunning = errors.New("turnloop: not running")
	ErrNotPaused  = errors.New("turnloop: not paused")
)

// TurnContext is the state handed to providers and callbacks.
type TurnContext struct {
	Position chess.Position
	Status   chess.GameStatus
	PGN      *chess.PgnRecord
	Clocks   ClockSnapshot
	Ply      int
}

// NewTurnContext evaluates pos and wraps it for Start.
func NewTurnContext(pos chess.Position) TurnContext {
	return TurnContext{Position: pos, Status: pos.EvaluateStatus()}
}

// Provider produces the next move for the side to move. Implementations
// should honor ctx cancellation; a returned error or a panic ends the game
// as illegal.
type Provider interface {
	NextMove(ctx context.Context, tc TurnContext) (chess.Move, error)
}

type ProviderFunc func(ctx context.Context, tc TurnContext) (chess.Move, error)

func (f ProviderFunc) NextMove(ctx context.Context, tc TurnContext) (chess.Move, error) {
	return f(ctx, tc)
}

type MoveEvent struct {
	Move    chess.Move
	SAN     string
	Context TurnContext
}

type EndEvent struct {
	Reason  EndReason
	Context TurnContext
}

// Callbacks are invoked from the loop goroutine (or the caller of Stop)
// without any internal lock held.
type Callbacks struct {
	OnTick        func(ClockSnapshot)
	OnMove        func(MoveEvent)
	OnStateChange func(TurnContext)
	OnEnd         func(EndEvent)
}

type Config struct {
	White   Provider
	Black   Provider
	PerMove time.Duration
	Tick    time.Duration
	// Headers seed the PGN record when Start is given none.
	Headers   chess.PgnHeaders
	Callbacks Callbacks
}

// Loop drives alternating providers until the game ends. All methods are
// safe for concurrent use.
type Loop struct {
	white Provider
	black Provider
	cb    Callbacks
	hdr   chess.PgnHeaders
	timer *Timer
	log   *zap.Logger

	expired chan struct{}
	wake    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	state   State
	tc      TurnContext
	attempt uint64
	reason  EndReason
	base    context.Context
	cancel  context.CancelFunc
}

func New(cfg Config) *Loop {
	l := &Loop{
		white:   cfg.White,
		black:   cfg.Black,
		cb:      cfg.Callbacks,
		hdr:     cfg.Headers,
		log:     obslog.L().With(zap.String("component", "turnloop")),
		expired: make(chan struct{}, 1),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	l.timer = NewTimer(TimerConfig{
		PerMove:  cfg.PerMove,
		Tick:     cfg.Tick,
		OnTick:   cfg.Callbacks.OnTick,
		OnExpire: l.onExpire,
	})
	return l
}

func (l *Loop) onExpire(chess.Color) {
	select {
	case l.expired <- struct{}{}:
	default:
	}
}

func (l *Loop) signalWake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Start begins play from initial. A nil initial.PGN is replaced by a fresh
// record built from the configured headers. ctx bounds every provider call.
func (l *Loop) Start(ctx context.Context, initial TurnContext) error {
	l.mu.Lock()
	if l.state != Idle {
		l.mu.Unlock()
		return ErrNotIdle
	}
	if initial.PGN == nil {
		rec := chess.NewPgnRecord(l.hdr)
		initial.PGN = &rec
	}
	initial.Status = initial.Position.EvaluateStatus()
	initial.Clocks = l.timer.Snapshot()
	l.tc = initial
	l.base = ctx
	l.state = Running
	l.mu.Unlock()

	l.log.Info("turnloop_start",
		zap.String("fen", initial.Position.FEN()),
		zap.String("white_model", initial.PGN.Headers.WhiteModel),
		zap.String("black_model", initial.PGN.Headers.BlackModel),
	)
	if l.cb.OnStateChange != nil {
		l.cb.OnStateChange(initial)
	}
	if initial.Status.GameOver {
		l.finish(endReasonFor(initial.Status))
		return nil
	}
	go l.run()
	return nil
}

// Pause freezes the clock. An in-flight provider result that arrives while
// paused is discarded; Resume re-issues the request.
func (l *Loop) Pause() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Running {
		return ErrNotRunning
	}
	l.state = Paused
	l.attempt++
	l.timer.Pause()
	l.log.Debug("turnloop_pause", zap.Int("ply", l.tc.Ply))
	return nil
}

func (l *Loop) Resume() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Paused {
		return ErrNotPaused
	}
	l.state = Running
	l.signalWake()
	l.log.Debug("turnloop_resume", zap.Int("ply", l.tc.Ply))
	return nil
}

// Stop ends the game with reason, EndStopped when reason is EndNone.
func (l *Loop) Stop(reason EndReason) {
	if reason == EndNone {
		reason = EndStopped
	}
	l.finish(reason)
}

func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Context returns a copy of the current turn context.
func (l *Loop) Context() TurnContext {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tc
}

func (l *Loop) Done() <-chan struct{} { return l.done }

// Result reports the end reason once the loop has finished.
func (l *Loop) Result() (EndEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Finished {
		return EndEvent{}, false
	}
	return EndEvent{Reason: l.reason, Context: l.tc}, true
}

// Wait blocks until the loop finishes or ctx is done.
func (l *Loop) Wait(ctx context.Context) (EndEvent, error) {
	select {
	case <-l.done:
		ev, _ := l.Result()
		return ev, nil
	case <-ctx.Done():
		return EndEvent{}, ctx.Err()
	}
}

// finish is idempotent; only the first call reports OnEnd.
func (l *Loop) finish(reason EndReason) {
	l.mu.Lock()
	if l.state == Finished {
		l.mu.Unlock()
		return
	}
	l.state = Finished
	l.reason = reason
	l.attempt++
	l.timer.ClearAll()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	tc := l.tc
	l.mu.Unlock()

	close(l.done)
	l.log.Info("turnloop_end",
		zap.String("reason", reason.String()),
		zap.Int("ply", tc.Ply),
		zap.String("fen", tc.Position.FEN()),
	)
	if l.cb.OnEnd != nil {
		l.cb.OnEnd(EndEvent{Reason: reason, Context: tc})
	}
}

type providerResult struct {
	move chess.Move
	err  error
}

func (l *Loop) providerFor(c chess.Color) Provider {
	if c == chess.White {
		return l.white
	}
	return l.black
}

func (l *Loop) run() {
	for {
		l.mu.Lock()
		switch l.state {
		case Finished:
			l.mu.Unlock()
			return
		case Paused:
			l.mu.Unlock()
			select {
			case <-l.wake:
			case <-l.done:
				return
			}
			continue
		}
		// Drop a wake left over from a pause/resume that happened between plies.
		select {
		case <-l.wake:
		default:
		}
		select {
		case <-l.expired:
		default:
		}
		tc := l.tc
		attempt := l.attempt
		color := tc.Position.Turn
		pctx, cancel := context.WithCancel(l.base)
		l.cancel = cancel
		l.timer.ResetPerMove(color)
		l.timer.StartTurn(color)
		tc.Clocks = l.timer.Snapshot()
		l.mu.Unlock()

		results := make(chan providerResult, 1)
		go callProvider(pctx, l.providerFor(color), tc, results)
		l.awaitPly(attempt, results)
		cancel()
	}
}

func callProvider(ctx context.Context, p Provider, tc TurnContext, out chan<- providerResult) {
	defer func() {
		if r := recover(); r != nil {
			out <- providerResult{err: fmt.Errorf("provider panic: %v", r)}
		}
	}()
	if p == nil {
		out <- providerResult{err: errors.New("no provider for side to move")}
		return
	}
	m, err := p.NextMove(ctx, tc)
	out <- providerResult{move: m, err: err}
}

// awaitPly returns once the attempt is resolved, superseded or the loop ends.
func (l *Loop) awaitPly(attempt uint64, results <-chan providerResult) {
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
			return
		case <-l.expired:
			l.mu.Lock()
			live := l.state == Running && l.attempt == attempt && l.timer.Expired()
			l.mu.Unlock()
			if !live {
				continue
			}
			l.finish(EndTimeout)
			return
		case res := <-results:
			l.handleResult(attempt, res)
			return
		}
	}
}

func (l *Loop) handleResult(attempt uint64, res providerResult) {
	l.mu.Lock()
	if l.state != Running || l.attempt != attempt {
		l.mu.Unlock()
		l.log.Debug("turnloop_result_discarded", zap.Uint64("attempt", attempt))
		return
	}
	l.timer.Pause()
	tc := l.tc
	l.mu.Unlock()

	if res.err != nil && l.base.Err() != nil {
		l.finish(EndStopped)
		return
	}
	if res.err != nil {
		l.log.Warn("turnloop_provider_failed",
			zap.String("side", tc.Position.Turn.String()),
			zap.Error(res.err),
		)
		l.finish(EndIllegal)
		return
	}

	vr := chess.ValidateMove(tc.Position, res.move, chess.ValidateOptions{PGN: tc.PGN})
	if !vr.Legal {
		l.log.Warn("turnloop_illegal_move",
			zap.String("side", tc.Position.Turn.String()),
			zap.String("move", res.move.UCI()),
			zap.String("reason", vr.Reason.String()),
		)
		l.finish(EndIllegal)
		return
	}

	l.mu.Lock()
	if l.state != Running || l.attempt != attempt {
		l.mu.Unlock()
		return
	}
	next := TurnContext{
		Position: vr.Next,
		Status:   vr.Status,
		PGN:      vr.PGN,
		Clocks:   l.timer.Snapshot(),
		Ply:      tc.Ply + 1,
	}
	l.tc = next
	l.mu.Unlock()

	if l.cb.OnMove != nil {
		l.cb.OnMove(MoveEvent{Move: vr.Move, SAN: vr.SAN, Context: next})
	}
	if l.cb.OnStateChange != nil {
		l.cb.OnStateChange(next)
	}
	if next.Status.GameOver {
		l.finish(endReasonFor(next.Status))
	}
}
