package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/park285/chess-arena/internal/chess"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) *time.Time {
	ts := base.Add(time.Duration(minutes) * time.Minute)
	return &ts
}

func sampleAnnotations() []MoveAnnotation {
	return []MoveAnnotation{
		{GameID: "g1", Ply: 1, ModelID: "a", DeltaCp: 200, Classification: Strong, Timestamp: at(0)},
		{GameID: "g1", Ply: 3, ModelID: "a", DeltaCp: 500, Classification: Strong, Timestamp: at(10)},
		{GameID: "g1", Ply: 2, ModelID: "b", DeltaCp: -400, Classification: Blunder, Timestamp: at(5)},
		{GameID: "g2", Ply: 7, ModelID: "b", DeltaCp: MateMagnitude, Classification: MateWin, Timestamp: at(30)},
		{GameID: "g2", Ply: 8, ModelID: "a", DeltaCp: -MateMagnitude, Classification: MateLoss, Timestamp: at(31)},
		{GameID: "g2", Ply: 4, ModelID: "a", DeltaCp: 60, Classification: Accurate},
		{GameID: "g3", Ply: 1, DeltaCp: -200, Classification: Blunder},
	}
}

func TestTopMovesAndBlunders(t *testing.T) {
	annos := sampleAnnotations()
	top := TopMoves(annos, nil)
	if len(top) != 3 || top[0].Classification != MateWin || top[1].DeltaCp != 500 || top[2].DeltaCp != 200 {
		t.Fatalf("top = %+v", top)
	}
	blunders := TopBlunders(annos, nil)
	if len(blunders) != 3 || blunders[0].Classification != MateLoss || blunders[1].DeltaCp != -400 {
		t.Fatalf("blunders = %+v", blunders)
	}

	onlyA := TopMoves(annos, &Filters{ModelIDs: []string{"a"}, TopCount: 1})
	if len(onlyA) != 1 || onlyA[0].DeltaCp != 500 {
		t.Fatalf("filtered top = %+v", onlyA)
	}
	// The unattributed blunder is dropped once a model filter is set.
	if got := TopBlunders(annos, &Filters{ModelIDs: []string{"a", "b"}}); len(got) != 2 {
		t.Fatalf("filtered blunders = %+v", got)
	}
}

func TestFilterTimeRange(t *testing.T) {
	annos := sampleAnnotations()
	got := FilterAnnotations(annos, &Filters{Since: at(5), Until: at(30)})
	// at(5), at(10), at(30) plus the two without timestamps.
	if len(got) != 5 {
		t.Fatalf("filtered = %d", len(got))
	}
	if len(FilterAnnotations(annos, nil)) != len(annos) {
		t.Fatalf("nil filters dropped annotations")
	}
}

func TestTopCountClamp(t *testing.T) {
	var annos []MoveAnnotation
	for i := range 150 {
		annos = append(annos, MoveAnnotation{GameID: fmt.Sprint(i), DeltaCp: 150 + i, Classification: Strong})
	}
	cases := []struct{ in, want int }{{0, 10}, {-5, 1}, {1, 1}, {42, 42}, {1000, 100}}
	for _, tc := range cases {
		if got := len(TopMoves(annos, &Filters{TopCount: tc.in})); got != tc.want {
			t.Errorf("topCount %d -> %d items, want %d", tc.in, got, tc.want)
		}
	}
}

func TestAnnotate(t *testing.T) {
	s := Score(ScoreInput{Before: CP(30), After: CP(20), Color: chess.Black, Meta: &MoveMeta{Ply: 6, SAN: "Nf6"}})
	a := Annotate("g9", "model-x", s, base)
	if a.Ply != 6 || a.SAN != "Nf6" || a.Color != chess.Black || a.ModelID != "model-x" {
		t.Fatalf("annotation = %+v", a)
	}
	if a.EvalBefore == nil || *a.EvalBefore != 30 || a.EvalAfter == nil || *a.EvalAfter != -20 {
		t.Fatalf("evals = %v %v", a.EvalBefore, a.EvalAfter)
	}
	if a.Timestamp == nil || !a.Timestamp.Equal(base) {
		t.Fatalf("timestamp = %v", a.Timestamp)
	}
	mate := Annotate("g9", "", Score(ScoreInput{Before: CP(0), After: Mate(1, -1)}), time.Time{})
	if mate.EvalAfter != nil || mate.Timestamp != nil {
		t.Fatalf("mate annotation = %+v", mate)
	}
}

func TestSummarize(t *testing.T) {
	ranked := Rank(Aggregate([]GameRecord{
		{ModelID: "a", Outcome: Win},
		{ModelID: "b", Outcome: Loss},
	}), nil)
	f := &Filters{ModelIDs: []string{"b"}}
	out := Summarize(sampleAnnotations(), ranked, f, base)
	if out.GeneratedAt != "2024-05-01T12:00:00.000Z" || out.FiltersApplied != f {
		t.Fatalf("summary header = %+v", out)
	}
	if len(out.ModelTable) != 1 || out.ModelTable[0].ModelID != "b" || out.ModelTable[0].Rank != 2 {
		t.Fatalf("table = %+v", out.ModelTable)
	}
	if len(out.TopMoves) != 1 || len(out.TopBlunders) != 1 {
		t.Fatalf("top lists = %+v / %+v", out.TopMoves, out.TopBlunders)
	}
}
