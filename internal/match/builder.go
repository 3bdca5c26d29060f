package match

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingSelection = errors.New("two model selections are required")
	ErrMirrorDisabled   = errors.New("mirror matches are disabled")
)

// ValidateChoices requires both ids and, unless mirrors are allowed,
// distinct models.
func ValidateChoices(first, second *ModelChoice, opts Options) (ModelChoice, ModelChoice, error) {
	if first == nil || second == nil || strings.TrimSpace(first.ID) == "" || strings.TrimSpace(second.ID) == "" {
		return ModelChoice{}, ModelChoice{}, ErrMissingSelection
	}
	allowMirror := opts.AllowMirror == nil || *opts.AllowMirror
	if !allowMirror && first.ID == second.ID {
		return ModelChoice{}, ModelChoice{}, ErrMirrorDisabled
	}
	return *first, *second, nil
}

// seededRandom maps seed into [0, 1) with the fractional part of
// sin(seed)*10000.
func seededRandom(seed float64) float64 {
	x := math.Sin(seed) * 10000
	return x - math.Floor(x)
}

// AssignColors keeps (a, b) as (white, black) unless randomize is set and
// the draw is at least 0.5.
func AssignColors(a, b ModelChoice, randomize bool, seed *float64) Assignment {
	if !randomize {
		return Assignment{White: a, Black: b}
	}
	var r float64
	if seed != nil {
		r = seededRandom(*seed)
	} else {
		r = rand.Float64()
	}
	if r < 0.5 {
		return Assignment{White: a, Black: b}
	}
	return Assignment{White: b, Black: a}
}

func toSide(c ModelChoice) Side {
	return Side{ID: c.ID, Provider: c.Provider, Name: c.Name()}
}

// Build validates the pair, assigns colours per opts.Color and stamps a
// fresh match id.
func Build(first, second *ModelChoice, opts Options) (Match, error) {
	a, b, err := ValidateChoices(first, second, opts)
	if err != nil {
		return Match{}, err
	}
	color := opts.Color
	if color == "" {
		color = ColorRandom
	}
	var assignment Assignment
	switch color {
	case ColorWhite:
		assignment = AssignColors(a, b, false, nil)
	case ColorBlack:
		assignment = AssignColors(b, a, false, nil)
	default:
		assignment = AssignColors(a, b, true, opts.Seed)
	}
	return Match{
		ID:        uuid.NewString(),
		White:     toSide(assignment.White),
		Black:     toSide(assignment.Black),
		Models:    assignment,
		Color:     color,
		CreatedAt: time.Now(),
	}, nil
}
