package analysis

import (
	"slices"
	"time"

	"github.com/park285/chess-arena/internal/chess"
)

const (
	DefaultTopCount = 10
	minTopCount     = 1
	maxTopCount     = 100
)

type MoveAnnotation struct {
	GameID         string         `json:"gameId"`
	Ply            int            `json:"ply"`
	SAN            string         `json:"san,omitempty"`
	Color          chess.Color    `json:"color"`
	DeltaCp        int            `json:"deltaCp"`
	Classification Classification `json:"classification"`
	EvalBefore     *int           `json:"evalBefore,omitempty"`
	EvalAfter      *int           `json:"evalAfter,omitempty"`
	Timestamp      *time.Time     `json:"timestamp,omitempty"`
	ModelID        string         `json:"modelId,omitempty"`
}

// Annotate turns a scored move into a summary row. Centipawn evaluations
// are recorded from the mover's point of view; mate evaluations are left
// out.
func Annotate(gameID, modelID string, s MoveScore, at time.Time) MoveAnnotation {
	a := MoveAnnotation{
		GameID:         gameID,
		Color:          s.Color,
		DeltaCp:        s.DeltaCp,
		Classification: s.Classification,
		ModelID:        modelID,
	}
	if s.Meta != nil {
		a.Ply = s.Meta.Ply
		a.SAN = s.Meta.SAN
	}
	if s.Before.Kind == EvalCP {
		v := relative(s.Before, true).value
		a.EvalBefore = &v
	}
	if s.After.Kind == EvalCP {
		v := relative(s.After, false).value
		a.EvalAfter = &v
	}
	if !at.IsZero() {
		ts := at.UTC()
		a.Timestamp = &ts
	}
	return a
}

type Filters struct {
	ModelIDs []string   `json:"modelIds,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
	Until    *time.Time `json:"until,omitempty"`
	TopCount int        `json:"topCount,omitempty"`
}

type TopMoveItem struct {
	GameID         string         `json:"gameId"`
	Ply            int            `json:"ply"`
	SAN            string         `json:"san,omitempty"`
	Color          chess.Color    `json:"color"`
	DeltaCp        int            `json:"deltaCp"`
	Classification Classification `json:"classification"`
	ModelID        string         `json:"modelId,omitempty"`
	Timestamp      *time.Time     `json:"timestamp,omitempty"`
}

type ModelTableRow struct {
	ModelID        string  `json:"modelId"`
	Rank           int     `json:"rank"`
	Score          float64 `json:"score"`
	Games          int     `json:"games"`
	WinRate        float64 `json:"winRate"`
	StrongPerGame  float64 `json:"strongPerGame"`
	BlunderPerGame float64 `json:"blunderPerGame"`
	QualityScore   float64 `json:"qualityScore"`
}

type ExportedSummary struct {
	GeneratedAt    string          `json:"generatedAt"`
	FiltersApplied *Filters        `json:"filtersApplied,omitempty"`
	TopMoves       []TopMoveItem   `json:"topMoves"`
	TopBlunders    []TopMoveItem   `json:"topBlunders"`
	ModelTable     []ModelTableRow `json:"modelTable"`
}

// clampTopCount maps 0 to the default and bounds everything else to [1, 100].
func clampTopCount(n int) int {
	if n == 0 {
		return DefaultTopCount
	}
	return min(maxTopCount, max(minTopCount, n))
}

func withinRange(ts *time.Time, since, until *time.Time) bool {
	if ts == nil {
		return true
	}
	if since != nil && ts.Before(*since) {
		return false
	}
	if until != nil && ts.After(*until) {
		return false
	}
	return true
}

func matchesModel(id string, ids []string) bool {
	if len(ids) == 0 {
		return true
	}
	return id != "" && slices.Contains(ids, id)
}

// FilterAnnotations keeps annotations for the selected models inside the
// inclusive time range. Annotations without a timestamp always pass the
// range check.
func FilterAnnotations(annos []MoveAnnotation, f *Filters) []MoveAnnotation {
	if f == nil {
		return annos
	}
	out := make([]MoveAnnotation, 0, len(annos))
	for _, a := range annos {
		if matchesModel(a.ModelID, f.ModelIDs) && withinRange(a.Timestamp, f.Since, f.Until) {
			out = append(out, a)
		}
	}
	return out
}

func topItems(annos []MoveAnnotation, f *Filters, keep func(Classification) bool, cmp func(a, b MoveAnnotation) int) []TopMoveItem {
	selected := make([]MoveAnnotation, 0, len(annos))
	for _, a := range FilterAnnotations(annos, f) {
		if keep(a.Classification) {
			selected = append(selected, a)
		}
	}
	slices.SortStableFunc(selected, cmp)
	count := DefaultTopCount
	if f != nil {
		count = clampTopCount(f.TopCount)
	}
	if len(selected) > count {
		selected = selected[:count]
	}
	out := make([]TopMoveItem, 0, len(selected))
	for _, a := range selected {
		out = append(out, TopMoveItem{
			GameID:         a.GameID,
			Ply:            a.Ply,
			SAN:            a.SAN,
			Color:          a.Color,
			DeltaCp:        a.DeltaCp,
			Classification: a.Classification,
			ModelID:        a.ModelID,
			Timestamp:      a.Timestamp,
		})
	}
	return out
}

func TopMoves(annos []MoveAnnotation, f *Filters) []TopMoveItem {
	return topItems(annos, f,
		func(c Classification) bool { return c == Strong || c == MateWin },
		func(a, b MoveAnnotation) int { return b.DeltaCp - a.DeltaCp },
	)
}

func TopBlunders(annos []MoveAnnotation, f *Filters) []TopMoveItem {
	return topItems(annos, f,
		func(c Classification) bool { return c == Blunder || c == MateLoss },
		func(a, b MoveAnnotation) int { return a.DeltaCp - b.DeltaCp },
	)
}

func ModelTable(ranked []RankedModel, f *Filters) []ModelTableRow {
	out := make([]ModelTableRow, 0, len(ranked))
	for _, r := range ranked {
		if f != nil && len(f.ModelIDs) > 0 && !slices.Contains(f.ModelIDs, r.ModelID) {
			continue
		}
		out = append(out, ModelTableRow{
			ModelID:        r.ModelID,
			Rank:           r.Rank,
			Score:          r.Score,
			Games:          r.Metrics.Games,
			WinRate:        r.Metrics.WinRate,
			StrongPerGame:  r.Metrics.StrongPerGame,
			BlunderPerGame: r.Metrics.BlunderPerGame,
			QualityScore:   r.Metrics.QualityScore,
		})
	}
	return out
}

func ExportSummary(f *Filters, top, blunders []TopMoveItem, table []ModelTableRow, now time.Time) ExportedSummary {
	return ExportedSummary{
		GeneratedAt:    now.UTC().Format("2006-01-02T15:04:05.000Z"),
		FiltersApplied: f,
		TopMoves:       top,
		TopBlunders:    blunders,
		ModelTable:     table,
	}
}

// Summarize builds the full export from annotations and a ranking.
func Summarize(annos []MoveAnnotation, ranked []RankedModel, f *Filters, now time.Time) ExportedSummary {
	return ExportSummary(f, TopMoves(annos, f), TopBlunders(annos, f), ModelTable(ranked, f), now)
}
