package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/obslog"
)

var ErrPoolClosed = errors.New("uci: pool closed")

// DialFunc opens a ready session configured with opt.
type DialFunc func(ctx context.Context, opt Options) (*Session, error)

type PoolConfig struct {
	BinaryPath string
	Options    Options
	// Size bounds live sessions; zero picks a value from the CPU count.
	Size int
	// Dial overrides process startup; BinaryPath is ignored when set.
	Dial DialFunc
}

// Pool keeps up to Size warm sessions sharing one Options value. A session
// is handed to one search at a time.
type Pool struct {
	dial DialFunc
	opts Options

	// slots holds one token per live session.
	slots chan struct{}
	idle  chan *Session

	mu     sync.Mutex
	closed bool
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if err := validateOptions(cfg.Options); err != nil {
		return nil, err
	}
	dial := cfg.Dial
	if dial == nil {
		if cfg.BinaryPath == "" {
			return nil, fmt.Errorf("binary path required")
		}
		if _, err := os.Stat(cfg.BinaryPath); err != nil {
			return nil, fmt.Errorf("engine binary check: %w", err)
		}
		path := cfg.BinaryPath
		dial = func(ctx context.Context, opt Options) (*Session, error) {
			return NewSession(ctx, path, opt)
		}
	}
	size := cfg.Size
	if size <= 0 {
		size = defaultPoolSize()
	}
	return &Pool{
		dial:  dial,
		opts:  cfg.Options,
		slots: make(chan struct{}, size),
		idle:  make(chan *Session, size),
	}, nil
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Acquire returns an idle session, starts a new one while under Size, or
// waits for a release.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		if p.isClosed() {
			return nil, ErrPoolClosed
		}
		select {
		case s := <-p.idle:
			if p.ready(ctx, s) {
				return s, nil
			}
			continue
		default:
		}

		select {
		case s := <-p.idle:
			if p.ready(ctx, s) {
				return s, nil
			}
		case p.slots <- struct{}{}:
			s, err := p.dial(ctx, p.opts)
			if err != nil {
				<-p.slots
				return nil, err
			}
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ready pings an idle session and drops it if it went stale.
func (p *Pool) ready(ctx context.Context, s *Session) bool {
	if err := s.EnsureReady(ctx); err != nil {
		obslog.L().Warn("uci_pool_stale_session", zap.Error(err))
		p.discard(s)
		return false
	}
	return true
}

// Release returns s to the pool. A session that failed its last search is
// closed instead.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	if err != nil {
		p.discard(s)
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.discard(s)
		return
	}
	// idle has room for every slot, so this never blocks.
	p.idle <- s
	p.mu.Unlock()
}

func (p *Pool) discard(s *Session) {
	_ = s.Close()
	<-p.slots
}

// Close shuts down idle sessions. Sessions still checked out are closed
// when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case s := <-p.idle:
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			<-p.slots
		default:
			return errors.Join(errs...)
		}
	}
}

func defaultPoolSize() int {
	return min(max(runtime.NumCPU(), 2), 4)
}
