package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/park285/chess-arena/internal/chess"
)

// MateMagnitude stands in for a forced mate when computing deltas so that
// mate swings always dominate centipawn swings.
const MateMagnitude = 1_000_000

type EvalKind int

const (
	EvalCP EvalKind = iota
	EvalMate
)

func (k EvalKind) String() string {
	if k == EvalMate {
		return "mate"
	}
	return "cp"
}

// Evaluation is an engine score relative to the side to move when it was
// taken. Value is centipawns for EvalCP; Moves and Sign describe a forced
// mate (Sign +1 winning, -1 losing) for EvalMate.
type Evaluation struct {
	Kind  EvalKind
	Value int
	Moves int
	Sign  int
}

func CP(value int) Evaluation { return Evaluation{Kind: EvalCP, Value: value} }

func Mate(moves, sign int) Evaluation {
	if sign >= 0 {
		sign = 1
	} else {
		sign = -1
	}
	return Evaluation{Kind: EvalMate, Moves: moves, Sign: sign}
}

func (e Evaluation) String() string {
	if e.Kind == EvalMate {
		if e.Sign < 0 {
			return fmt.Sprintf("#-%d", e.Moves)
		}
		return fmt.Sprintf("#%d", e.Moves)
	}
	return fmt.Sprintf("%+dcp", e.Value)
}

type evalWire struct {
	Type  string `json:"type"`
	Value *int   `json:"value,omitempty"`
	Moves *int   `json:"moves,omitempty"`
	Sign  *int   `json:"sign,omitempty"`
}

func (e Evaluation) MarshalJSON() ([]byte, error) {
	if e.Kind == EvalMate {
		return json.Marshal(evalWire{Type: "mate", Moves: &e.Moves, Sign: &e.Sign})
	}
	return json.Marshal(evalWire{Type: "cp", Value: &e.Value})
}

func (e *Evaluation) UnmarshalJSON(data []byte) error {
	var w evalWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case "cp":
		if w.Value == nil {
			return fmt.Errorf("cp evaluation without value")
		}
		*e = CP(*w.Value)
	case "mate":
		if w.Moves == nil || w.Sign == nil || (*w.Sign != 1 && *w.Sign != -1) {
			return fmt.Errorf("mate evaluation needs moves and a sign of 1 or -1")
		}
		*e = Mate(*w.Moves, *w.Sign)
	default:
		return fmt.Errorf("unknown evaluation type %q", w.Type)
	}
	return nil
}

type Classification int

const (
	Neutral Classification = iota
	MateWin
	MateLoss
	Strong
	Accurate
	Inaccuracy
	Mistake
	Blunder
)

var classificationNames = [...]string{
	Neutral:    "neutral",
	MateWin:    "mateWin",
	MateLoss:   "mateLoss",
	Strong:     "strong",
	Accurate:   "accurate",
	Inaccuracy: "inaccuracy",
	Mistake:    "mistake",
	Blunder:    "blunder",
}

func (c Classification) String() string {
	if c < 0 || int(c) >= len(classificationNames) {
		return fmt.Sprintf("classification(%d)", int(c))
	}
	return classificationNames[c]
}

func ParseClassification(s string) (Classification, bool) {
	for i, name := range classificationNames {
		if name == s {
			return Classification(i), true
		}
	}
	return Neutral, false
}

func (c Classification) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Classification) UnmarshalText(text []byte) error {
	v, ok := ParseClassification(string(text))
	if !ok {
		return fmt.Errorf("unknown classification %q", string(text))
	}
	*c = v
	return nil
}

// Thresholds are centipawn bands. Mistake and Blunder are magnitudes of a
// loss, so a delta <= -Blunder is a blunder.
type Thresholds struct {
	Strong     int `yaml:"strong" json:"strong"`
	Accurate   int `yaml:"accurate" json:"accurate"`
	Inaccuracy int `yaml:"inaccuracy" json:"inaccuracy"`
	Mistake    int `yaml:"mistake" json:"mistake"`
	Blunder    int `yaml:"blunder" json:"blunder"`
}

var DefaultThresholds = Thresholds{Strong: 150, Accurate: 50, Inaccuracy: 50, Mistake: 50, Blunder: 150}

// ThresholdOverrides replace individual default bands; nil fields keep
// the default.
type ThresholdOverrides struct {
	Strong     *int `yaml:"strong" json:"strong,omitempty"`
	Accurate   *int `yaml:"accurate" json:"accurate,omitempty"`
	Inaccuracy *int `yaml:"inaccuracy" json:"inaccuracy,omitempty"`
	Mistake    *int `yaml:"mistake" json:"mistake,omitempty"`
	Blunder    *int `yaml:"blunder" json:"blunder,omitempty"`
}

func (o *ThresholdOverrides) Merge() Thresholds {
	t := DefaultThresholds
	if o == nil {
		return t
	}
	pick := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	pick(&t.Strong, o.Strong)
	pick(&t.Accurate, o.Accurate)
	pick(&t.Inaccuracy, o.Inaccuracy)
	pick(&t.Mistake, o.Mistake)
	pick(&t.Blunder, o.Blunder)
	return t
}

type MoveMeta struct {
	Ply      int    `json:"ply,omitempty"`
	Fullmove int    `json:"fullmove,omitempty"`
	SAN      string `json:"san,omitempty"`
}

type MateInfo struct {
	IsWin bool `json:"isWin"`
	Moves int  `json:"moves"`
}

type ScoreInput struct {
	Before     Evaluation
	After      Evaluation
	Color      chess.Color
	Meta       *MoveMeta
	Thresholds *ThresholdOverrides
}

type MoveScore struct {
	Classification Classification `json:"classification"`
	DeltaCp        int            `json:"deltaCp"`
	Mate           *MateInfo      `json:"mate,omitempty"`
	Before         Evaluation     `json:"before"`
	After          Evaluation     `json:"after"`
	Color          chess.Color    `json:"color"`
	Meta           *MoveMeta      `json:"meta,omitempty"`
}

type relativeEval struct {
	value int
	mate  bool
	moves int
	win   bool
}

// relative converts e to the mover's point of view. Before is taken with the
// mover to move, after with the opponent to move.
func relative(e Evaluation, moverToMove bool) relativeEval {
	sign := 1
	if !moverToMove {
		sign = -1
	}
	if e.Kind == EvalMate {
		v := e.Sign * sign
		return relativeEval{value: v * MateMagnitude, mate: true, moves: e.Moves, win: v > 0}
	}
	return relativeEval{value: e.Value * sign}
}

// DeltaCp is the mover's evaluation change across one move.
func DeltaCp(before, after Evaluation) int {
	return relative(after, false).value - relative(before, true).value
}

func classify(delta int, after relativeEval, t Thresholds) Classification {
	if after.mate {
		if after.win {
			return MateWin
		}
		return MateLoss
	}
	switch {
	case delta == 0:
		return Neutral
	case delta >= t.Strong:
		return Strong
	case delta >= t.Accurate:
		return Accurate
	case abs(delta) <= t.Inaccuracy:
		return Inaccuracy
	case delta <= -t.Blunder:
		return Blunder
	case delta <= -t.Mistake:
		return Mistake
	}
	return Inaccuracy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func Score(in ScoreInput) MoveScore {
	thresholds := in.Thresholds.Merge()
	after := relative(in.After, false)
	delta := after.value - relative(in.Before, true).value

	out := MoveScore{
		Classification: classify(delta, after, thresholds),
		DeltaCp:        delta,
		Before:         in.Before,
		After:          in.After,
		Color:          in.Color,
		Meta:           in.Meta,
	}
	if after.mate {
		out.Mate = &MateInfo{IsWin: after.win, Moves: after.moves}
	}
	return out
}
