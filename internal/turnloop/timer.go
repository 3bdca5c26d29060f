package turnloop

import (
	"sync"
	"time"

	"github.com/park285/chess-arena/internal/chess"
)

const (
	DefaultPerMove = 30 * time.Second
	DefaultTick    = 500 * time.Millisecond
)

type ClockSnapshot struct {
	WhiteRemaining time.Duration
	BlackRemaining time.Duration
	Active         chess.Color
	HasActive      bool
}

type TimerConfig struct {
	PerMove  time.Duration
	Tick     time.Duration
	OnTick   func(ClockSnapshot)
	OnExpire func(chess.Color)
}

// Timer is a per-move countdown for both sides. Only the active side's clock
// runs; it is decremented by wall-clock elapsed time on every tick.
type Timer struct {
	perMove  time.Duration
	tick     time.Duration
	onTick   func(ClockSnapshot)
	onExpire func(chess.Color)
	now      func() time.Time

	mu        sync.Mutex
	remaining [2]time.Duration
	active    chess.Color
	hasActive bool
	lastTick  time.Time
	stop      chan struct{}
}

func NewTimer(cfg TimerConfig) *Timer {
	if cfg.PerMove <= 0 {
		cfg.PerMove = DefaultPerMove
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	t := &Timer{
		perMove:  cfg.PerMove,
		tick:     cfg.Tick,
		onTick:   cfg.OnTick,
		onExpire: cfg.OnExpire,
		now:      time.Now,
	}
	t.remaining = [2]time.Duration{cfg.PerMove, cfg.PerMove}
	return t
}

// StartTurn makes color the running clock, replacing any previous one.
func (t *Timer) StartTurn(color chess.Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startLocked(color)
}

func (t *Timer) startLocked(color chess.Color) {
	t.stopLocked()
	t.active = color
	t.hasActive = true
	t.lastTick = t.now()
	stop := make(chan struct{})
	t.stop = stop
	go t.loop(stop)
}

func (t *Timer) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// Pause stops the clock and clears the active side.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.hasActive = false
}

// Resume restarts color's clock unless one is already running.
func (t *Timer) Resume(color chess.Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasActive {
		return
	}
	t.startLocked(color)
}

func (t *Timer) ResetPerMove(color chess.Color) {
	t.mu.Lock()
	t.remaining[color] = t.perMove
	t.mu.Unlock()
}

// ClearAll stops the clock and restores both budgets.
func (t *Timer) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.hasActive = false
	t.remaining = [2]time.Duration{t.perMove, t.perMove}
}

func (t *Timer) Snapshot() ClockSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Timer) snapshotLocked() ClockSnapshot {
	return ClockSnapshot{
		WhiteRemaining: max(0, t.remaining[chess.White]),
		BlackRemaining: max(0, t.remaining[chess.Black]),
		Active:         t.active,
		HasActive:      t.hasActive,
	}
}

// Expired reports whether the active side's clock has run out.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasActive && t.remaining[t.active] <= 0
}

func (t *Timer) loop(stop chan struct{}) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if done := t.onTickFired(stop); done {
				return
			}
		}
	}
}

func (t *Timer) onTickFired(stop chan struct{}) bool {
	t.mu.Lock()
	if t.stop != stop || !t.hasActive {
		t.mu.Unlock()
		return true
	}
	current := t.now()
	t.remaining[t.active] -= current.Sub(t.lastTick)
	t.lastTick = current

	expired := t.remaining[t.active] <= 0
	if expired {
		t.remaining[t.active] = 0
		t.stop = nil
	}
	snap := t.snapshotLocked()
	color := t.active
	t.mu.Unlock()

	if t.onTick != nil {
		t.onTick(snap)
	}
	if expired && t.onExpire != nil {
		t.onExpire(color)
	}
	return expired
}
