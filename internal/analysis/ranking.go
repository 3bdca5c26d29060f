package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Outcome int

const (
	Win Outcome = iota
	Loss
	Draw
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Loss:
		return "loss"
	}
	return "draw"
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "win":
		*o = Win
	case "loss":
		*o = Loss
	case "draw":
		*o = Draw
	default:
		return fmt.Errorf("unknown outcome %q", string(text))
	}
	return nil
}

// GameRecord is one model's view of one finished game.
type GameRecord struct {
	ModelID     string  `json:"modelId"`
	OpponentID  string  `json:"opponentId"`
	Outcome     Outcome `json:"outcome"`
	StrongMoves int     `json:"strongMoves"`
	Blunders    int     `json:"blunders"`
	TotalMoves  int     `json:"totalMoves"`
	GameID      string  `json:"gameId,omitempty"`
}

type ModelMetrics struct {
	ModelID        string  `json:"modelId"`
	Games          int     `json:"games"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	Draws          int     `json:"draws"`
	StrongMoves    int     `json:"strongMoves"`
	Blunders       int     `json:"blunders"`
	TotalMoves     int     `json:"totalMoves"`
	WinRate        float64 `json:"winRate"`
	StrongPerGame  float64 `json:"strongPerGame"`
	BlunderPerGame float64 `json:"blunderPerGame"`
	QualityScore   float64 `json:"qualityScore"`
	CompositeScore float64 `json:"compositeScore"`
}

type Weights struct {
	WinRate float64 `yaml:"win_rate" json:"winRate"`
	Quality float64 `yaml:"quality" json:"quality"`
}

var DefaultWeights = Weights{WinRate: 0.5, Quality: 0.5}

// qualityClamp bounds strongPerGame - blunderPerGame before it is scaled
// to [-1, 1].
const qualityClamp = 3.0

type RankedModel struct {
	ModelID string       `json:"modelId"`
	Rank    int          `json:"rank"`
	Score   float64      `json:"score"`
	Metrics ModelMetrics `json:"metrics"`
}

type PersistedRanking struct {
	GeneratedAt string        `json:"generatedAt"`
	Ranking     []RankedModel `json:"ranking"`
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func normalizeQuality(q float64) float64 {
	return clamp(q, -qualityClamp, qualityClamp) / qualityClamp
}

// Normalize clamps both weights to [0, 1] and rescales them to sum to 1.
// A nil or all-zero input yields DefaultWeights.
func (w *Weights) Normalize() Weights {
	if w == nil {
		return DefaultWeights
	}
	win := clamp(w.WinRate, 0, 1)
	quality := clamp(w.Quality, 0, 1)
	sum := win + quality
	if sum <= 0 || math.IsNaN(sum) {
		return DefaultWeights
	}
	return Weights{WinRate: win / sum, Quality: quality / sum}
}

// Aggregate folds records into per-model metrics. Negative counters are
// treated as zero.
func Aggregate(records []GameRecord) map[string]ModelMetrics {
	out := make(map[string]ModelMetrics)
	for _, rec := range records {
		m, ok := out[rec.ModelID]
		if !ok {
			m = ModelMetrics{ModelID: rec.ModelID}
		}
		m.Games++
		m.StrongMoves += max(0, rec.StrongMoves)
		m.Blunders += max(0, rec.Blunders)
		m.TotalMoves += max(0, rec.TotalMoves)
		switch rec.Outcome {
		case Win:
			m.Wins++
		case Loss:
			m.Losses++
		default:
			m.Draws++
		}
		out[rec.ModelID] = m
	}
	for id, m := range out {
		out[id] = finalize(m)
	}
	return out
}

func finalize(m ModelMetrics) ModelMetrics {
	divisor := float64(max(m.Games, 1))
	if m.Games > 0 {
		m.WinRate = float64(m.Wins) / float64(m.Games)
	}
	m.StrongPerGame = float64(m.StrongMoves) / divisor
	m.BlunderPerGame = float64(m.Blunders) / divisor
	m.QualityScore = m.StrongPerGame - m.BlunderPerGame
	return m
}

// Rank orders models by composite score. Ties fall back to win rate, fewer
// blunders per game, more strong moves per game, then model id.
func Rank(metrics map[string]ModelMetrics, weights *Weights) []RankedModel {
	w := weights.Normalize()
	entries := make([]RankedModel, 0, len(metrics))
	for _, m := range metrics {
		score := m.WinRate*w.WinRate + normalizeQuality(m.QualityScore)*w.Quality
		m.CompositeScore = score
		entries = append(entries, RankedModel{ModelID: m.ModelID, Score: score, Metrics: m})
	}
	slices.SortFunc(entries, compareRanked)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func compareRanked(a, b RankedModel) int {
	if c := cmpDesc(a.Score, b.Score); c != 0 {
		return c
	}
	if c := cmpDesc(a.Metrics.WinRate, b.Metrics.WinRate); c != 0 {
		return c
	}
	if c := cmpDesc(b.Metrics.BlunderPerGame, a.Metrics.BlunderPerGame); c != 0 {
		return c
	}
	if c := cmpDesc(a.Metrics.StrongPerGame, b.Metrics.StrongPerGame); c != 0 {
		return c
	}
	return strings.Compare(a.ModelID, b.ModelID)
}

func cmpDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

func SerializeRanking(ranking []RankedModel, now time.Time) PersistedRanking {
	return PersistedRanking{
		GeneratedAt: now.UTC().Format("2006-01-02T15:04:05.000Z"),
		Ranking:     ranking,
	}
}

// rankedWire mirrors RankedModel with every field required, so an entry with
// a missing or mistyped field fails on its own.
type rankedWire struct {
	ModelID *string      `json:"modelId" validate:"required"`
	Rank    *float64     `json:"rank" validate:"required"`
	Score   *float64     `json:"score" validate:"required"`
	Metrics *metricsWire `json:"metrics" validate:"required"`
}

type metricsWire struct {
	ModelID        *string  `json:"modelId" validate:"required"`
	Games          *float64 `json:"games" validate:"required"`
	Wins           *float64 `json:"wins" validate:"required"`
	Losses         *float64 `json:"losses" validate:"required"`
	Draws          *float64 `json:"draws" validate:"required"`
	StrongMoves    *float64 `json:"strongMoves" validate:"required"`
	Blunders       *float64 `json:"blunders" validate:"required"`
	TotalMoves     *float64 `json:"totalMoves" validate:"required"`
	WinRate        *float64 `json:"winRate" validate:"required"`
	StrongPerGame  *float64 `json:"strongPerGame" validate:"required"`
	BlunderPerGame *float64 `json:"blunderPerGame" validate:"required"`
	QualityScore   *float64 `json:"qualityScore" validate:"required"`
	CompositeScore *float64 `json:"compositeScore" validate:"required"`
}

var wireValidate = validator.New()

// DeserializeRanking reads a PersistedRanking payload. Malformed entries
// are dropped; a payload without a ranking array yields an empty list.
func DeserializeRanking(data []byte) []RankedModel {
	var envelope struct {
		Ranking []json.RawMessage `json:"ranking"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return []RankedModel{}
	}
	out := make([]RankedModel, 0, len(envelope.Ranking))
	for _, raw := range envelope.Ranking {
		var w rankedWire
		if err := json.Unmarshal(raw, &w); err != nil {
			continue
		}
		if err := wireValidate.Struct(w); err != nil {
			continue
		}
		if err := wireValidate.Struct(w.Metrics); err != nil {
			continue
		}
		out = append(out, w.ranked())
	}
	return out
}

func (w rankedWire) ranked() RankedModel {
	m := w.Metrics
	return RankedModel{
		ModelID: *w.ModelID,
		Rank:    int(*w.Rank),
		Score:   *w.Score,
		Metrics: ModelMetrics{
			ModelID:        *m.ModelID,
			Games:          int(*m.Games),
			Wins:           int(*m.Wins),
			Losses:         int(*m.Losses),
			Draws:          int(*m.Draws),
			StrongMoves:    int(*m.StrongMoves),
			Blunders:       int(*m.Blunders),
			TotalMoves:     int(*m.TotalMoves),
			WinRate:        *m.WinRate,
			StrongPerGame:  *m.StrongPerGame,
			BlunderPerGame: *m.BlunderPerGame,
			QualityScore:   *m.QualityScore,
			CompositeScore: *m.CompositeScore,
		},
	}
}
