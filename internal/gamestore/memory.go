package gamestore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/park285/chess-arena/internal/analysis"
)

// MemoryRecords is an in-process stand-in for PostgresRecords used when no
// database is configured.
type MemoryRecords struct {
	mu    sync.RWMutex
	games map[string]FinishedGame
}

func NewMemoryRecords() *MemoryRecords {
	return &MemoryRecords{games: make(map[string]FinishedGame)}
}

func (m *MemoryRecords) SaveGame(_ context.Context, g FinishedGame) error {
	g.SANs = append([]string(nil), g.SANs...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.GameID] = g
	return nil
}

func (m *MemoryRecords) ListRecords(_ context.Context, since time.Time) ([]analysis.GameRecord, error) {
	m.mu.RLock()
	games := make([]FinishedGame, 0, len(m.games))
	for _, g := range m.games {
		if !g.EndedAt.Before(since) {
			games = append(games, g)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(games, func(a, b FinishedGame) int {
		if c := a.EndedAt.Compare(b.EndedAt); c != 0 {
			return c
		}
		if a.GameID < b.GameID {
			return -1
		}
		if a.GameID > b.GameID {
			return 1
		}
		return 0
	})
	out := make([]analysis.GameRecord, 0, len(games)*2)
	for _, g := range games {
		out = append(out, g.Black, g.White)
	}
	return out, nil
}

// RecordStore is implemented by PostgresRecords and MemoryRecords.
type RecordStore interface {
	SaveGame(ctx context.Context, g FinishedGame) error
	ListRecords(ctx context.Context, since time.Time) ([]analysis.GameRecord, error)
}

var (
	_ RecordStore = (*PostgresRecords)(nil)
	_ RecordStore = (*MemoryRecords)(nil)
)
