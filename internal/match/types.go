package match

import (
	"strings"
	"time"
)

// ColorChoice is the first model's colour preference.
type ColorChoice string

const (
	ColorWhite  ColorChoice = "white"
	ColorBlack  ColorChoice = "black"
	ColorRandom ColorChoice = "random"
)

func ParseColorChoice(s string) ColorChoice {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "white", "w":
		return ColorWhite
	case "black", "b":
		return ColorBlack
	default:
		return ColorRandom
	}
}

// ModelChoice is one selected model. Provider is informational.
type ModelChoice struct {
	ID          string `json:"id"`
	Provider    string `json:"provider,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

func (c ModelChoice) Name() string {
	if n := strings.TrimSpace(c.DisplayName); n != "" {
		return n
	}
	return c.ID
}

type Options struct {
	Color ColorChoice
	// AllowMirror permits the same model on both sides; nil means true.
	AllowMirror *bool
	// Seed makes colour assignment reproducible; nil draws a random value.
	Seed *float64
}

type Side struct {
	ID       string `json:"id"`
	Provider string `json:"provider,omitempty"`
	Name     string `json:"name"`
}

type Match struct {
	ID        string      `json:"id"`
	White     Side        `json:"white"`
	Black     Side        `json:"black"`
	Models    Assignment  `json:"models"`
	Color     ColorChoice `json:"color"`
	CreatedAt time.Time   `json:"createdAt"`
}

type Assignment struct {
	White ModelChoice `json:"white"`
	Black ModelChoice `json:"black"`
}
