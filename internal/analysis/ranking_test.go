package analysis

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAggregate(t *testing.T) {
	metrics := Aggregate([]GameRecord{
		{ModelID: "a", Outcome: Win, StrongMoves: 4, Blunders: 1, TotalMoves: 30},
		{ModelID: "a", Outcome: Loss, StrongMoves: 2, Blunders: -3, TotalMoves: 20},
		{ModelID: "a", Outcome: Draw, StrongMoves: 0, Blunders: 2, TotalMoves: 40},
		{ModelID: "b", Outcome: Win},
	})
	a := metrics["a"]
	if a.Games != 3 || a.Wins != 1 || a.Losses != 1 || a.Draws != 1 {
		t.Fatalf("counts = %+v", a)
	}
	if a.StrongMoves != 6 || a.Blunders != 3 || a.TotalMoves != 90 {
		t.Fatalf("sums = %+v", a)
	}
	if !approx(a.WinRate, 1.0/3) || !approx(a.StrongPerGame, 2) || !approx(a.BlunderPerGame, 1) || !approx(a.QualityScore, 1) {
		t.Fatalf("rates = %+v", a)
	}
	if metrics["b"].WinRate != 1 {
		t.Fatalf("b = %+v", metrics["b"])
	}
}

func TestWeightsNormalize(t *testing.T) {
	cases := []struct {
		in   *Weights
		want Weights
	}{
		{nil, DefaultWeights},
		{&Weights{}, DefaultWeights},
		{&Weights{WinRate: -1, Quality: -2}, DefaultWeights},
		{&Weights{WinRate: 1, Quality: 0}, Weights{WinRate: 1, Quality: 0}},
		{&Weights{WinRate: 5, Quality: 1}, Weights{WinRate: 0.5, Quality: 0.5}},
		{&Weights{WinRate: 0.3, Quality: 0.1}, Weights{WinRate: 0.75, Quality: 0.25}},
	}
	for _, tc := range cases {
		got := tc.in.Normalize()
		if !approx(got.WinRate, tc.want.WinRate) || !approx(got.Quality, tc.want.Quality) {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestRankTieBreaks(t *testing.T) {
	metrics := map[string]ModelMetrics{
		// Same composite: 0.5*0.5 + (1/3)*0.5 for both.
		"careless": {ModelID: "careless", WinRate: 0.5, StrongPerGame: 3, BlunderPerGame: 2, QualityScore: 1},
		"careful":  {ModelID: "careful", WinRate: 0.5, StrongPerGame: 1.5, BlunderPerGame: 0.5, QualityScore: 1},
		"top":      {ModelID: "top", WinRate: 1, QualityScore: 5},
		"zeta":     {ModelID: "zeta"},
		"alpha":    {ModelID: "alpha"},
	}
	ranked := Rank(metrics, nil)
	order := make([]string, len(ranked))
	for i, r := range ranked {
		order[i] = r.ModelID
		if r.Rank != i+1 {
			t.Fatalf("rank of %s = %d", r.ModelID, r.Rank)
		}
	}
	want := []string{"top", "careful", "careless", "alpha", "zeta"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if !approx(ranked[0].Score, 1) || ranked[0].Metrics.CompositeScore != ranked[0].Score {
		t.Fatalf("quality clamp not applied: %+v", ranked[0])
	}
}

func TestRankingSerializeRoundTrip(t *testing.T) {
	ranked := Rank(Aggregate([]GameRecord{
		{ModelID: "a", Outcome: Win, StrongMoves: 2},
		{ModelID: "b", Outcome: Loss, Blunders: 1},
	}), nil)
	payload := SerializeRanking(ranked, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	if payload.GeneratedAt != "2024-06-01T08:00:00.000Z" {
		t.Fatalf("generatedAt = %q", payload.GeneratedAt)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back := DeserializeRanking(raw)
	if len(back) != 2 || back[0] != ranked[0] || back[1] != ranked[1] {
		t.Fatalf("round trip = %+v, want %+v", back, ranked)
	}
}

func TestDeserializeRankingDropsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"non-string model id", `{"ranking":[{"modelId":7,"rank":1,"score":0.5,"metrics":{}}]}`, 0},
		{"not an object", `[1,2,3]`, 0},
		{"ranking not an array", `{"ranking":"x"}`, 0},
		{"garbage", `{`, 0},
		{"missing metrics field", `{"ranking":[{"modelId":"a","rank":1,"score":0.5,"metrics":{"modelId":"a"}}]}`, 0},
		{"one good one bad", `{"ranking":[` + goodEntry + `,{"modelId":"b"}]}`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeserializeRanking([]byte(tc.raw))
			if got == nil || len(got) != tc.want {
				t.Fatalf("got %+v, want %d entries", got, tc.want)
			}
		})
	}
}

const goodEntry = `{"modelId":"a","rank":1,"score":0.25,"metrics":{"modelId":"a","games":2,"wins":1,"losses":1,"draws":0,` +
	`"strongMoves":0,"blunders":0,"totalMoves":10,"winRate":0.5,"strongPerGame":0,"blunderPerGame":0,"qualityScore":0,"compositeScore":0.25}}`
