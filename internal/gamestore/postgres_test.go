package gamestore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/park285/chess-arena/internal/analysis"
)

// Runs only against a real database: TEST_DATABASE_URL=postgres://...
func TestPostgresRecords(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	repo, err := NewPostgresRecords(url)
	if err != nil {
		t.Fatalf("NewPostgresRecords: %v", err)
	}
	defer repo.Close()
	ctx := context.Background()
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	start := time.Now().Add(-time.Minute)
	id := uuid.NewString()
	g := FinishedGame{
		GameID:    id,
		White:     analysis.GameRecord{ModelID: "w", OpponentID: "b", Outcome: analysis.Win, StrongMoves: 3, TotalMoves: 4, GameID: id},
		Black:     analysis.GameRecord{ModelID: "b", OpponentID: "w", Outcome: analysis.Loss, Blunders: 1, TotalMoves: 4, GameID: id},
		Result:    "1-0",
		Reason:    "checkmate",
		SANs:      []string{"e4", "e5", "Qh5", "Nc6", "Bc4", "Nf6", "Qxf7#"},
		StartedAt: start,
		EndedAt:   start.Add(30 * time.Second),
	}
	if err := repo.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	// Upsert is idempotent.
	if err := repo.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame again: %v", err)
	}

	recs, err := repo.ListRecords(ctx, start)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	var mine []analysis.GameRecord
	for _, r := range recs {
		if r.GameID == id {
			mine = append(mine, r)
		}
	}
	if len(mine) != 2 {
		t.Fatalf("records for %s = %+v", id, mine)
	}
	metrics := analysis.Aggregate(mine)
	if metrics["w"].Wins != 1 || metrics["b"].Blunders != 1 {
		t.Fatalf("metrics = %+v", metrics)
	}
}

func TestNewPostgresRecordsRequiresURL(t *testing.T) {
	if _, err := NewPostgresRecords("  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
