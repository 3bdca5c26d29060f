package analysis

import (
	"encoding/json"
	"testing"

	"github.com/park285/chess-arena/internal/chess"
)

func TestScore(t *testing.T) {
	strong := 250
	cases := []struct {
		name      string
		in        ScoreInput
		want      Classification
		wantDelta int
	}{
		{"swing to mover", ScoreInput{Before: CP(0), After: CP(-200), Color: chess.White}, Strong, 200},
		{"small loss", ScoreInput{Before: CP(30), After: CP(20), Color: chess.White}, Inaccuracy, -50},
		{"no change", ScoreInput{Before: CP(40), After: CP(-40), Color: chess.Black}, Neutral, 0},
		{"accurate", ScoreInput{Before: CP(0), After: CP(-80)}, Accurate, 80},
		{"mistake", ScoreInput{Before: CP(0), After: CP(100)}, Mistake, -100},
		{"blunder", ScoreInput{Before: CP(50), After: CP(300)}, Blunder, -350},
		{"custom strong band", ScoreInput{Before: CP(0), After: CP(-200), Thresholds: &ThresholdOverrides{Strong: &strong}}, Accurate, 200},
		{"opponent gets mated", ScoreInput{Before: CP(100), After: Mate(3, -1)}, MateWin, MateMagnitude - 100},
		{"mover gets mated", ScoreInput{Before: CP(100), After: Mate(2, 1)}, MateLoss, -MateMagnitude - 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.in)
			if got.Classification != tc.want || got.DeltaCp != tc.wantDelta {
				t.Fatalf("Score = %s/%d, want %s/%d", got.Classification, got.DeltaCp, tc.want, tc.wantDelta)
			}
		})
	}
}

func TestScoreMateInfo(t *testing.T) {
	got := Score(ScoreInput{Before: CP(0), After: Mate(3, -1), Color: chess.Black, Meta: &MoveMeta{Ply: 8, SAN: "Qh4#"}})
	if got.Mate == nil || !got.Mate.IsWin || got.Mate.Moves != 3 {
		t.Fatalf("mate = %+v", got.Mate)
	}
	if got.Color != chess.Black || got.Meta.SAN != "Qh4#" {
		t.Fatalf("score = %+v", got)
	}
	if s := Score(ScoreInput{Before: CP(0), After: CP(0)}); s.Mate != nil {
		t.Fatalf("cp score carries mate info")
	}
}

func TestThresholdMerge(t *testing.T) {
	var nilOverrides *ThresholdOverrides
	if nilOverrides.Merge() != DefaultThresholds {
		t.Fatalf("nil overrides changed defaults")
	}
	blunder := 300
	got := (&ThresholdOverrides{Blunder: &blunder}).Merge()
	if got.Blunder != 300 || got.Strong != 150 || got.Mistake != 50 {
		t.Fatalf("merged = %+v", got)
	}
}

func TestEvaluationJSON(t *testing.T) {
	for _, e := range []Evaluation{CP(-35), Mate(4, -1)} {
		raw, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var back Evaluation
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if back != e {
			t.Fatalf("round trip %s: %+v", raw, back)
		}
	}
	var e Evaluation
	if err := json.Unmarshal([]byte(`{"type":"mate","moves":2,"sign":0}`), &e); err == nil {
		t.Fatalf("accepted zero mate sign")
	}
}
