package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/park285/chess-arena/internal/analysis"
	"github.com/park285/chess-arena/internal/arena"
	"github.com/park285/chess-arena/internal/chess/gameio"
	"github.com/park285/chess-arena/internal/chess/openingbook"
	"github.com/park285/chess-arena/internal/match"
	"github.com/park285/chess-arena/internal/turnloop"
)

type playReport struct {
	GameID  string                   `json:"gameId"`
	White   match.Side               `json:"white"`
	Black   match.Side               `json:"black"`
	Reason  string                   `json:"reason"`
	Opening *openingbook.Opening     `json:"opening,omitempty"`
	Result  string                   `json:"result"`
	Export  gameio.GameExport        `json:"export"`
	PGN     string                   `json:"pgn"`
	Scores  []analysis.MoveScore     `json:"scores,omitempty"`
	Summary analysis.ExportedSummary `json:"summary"`
}

func (a *app) play(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	white := fs.String("white", "", "first player: engine, first, random[:seed] or a model id")
	black := fs.String("black", "", "second player")
	color := fs.String("color", "white", "first player's colour: white, black or random")
	seed := fs.Float64("seed", -1, "colour assignment seed (negative draws a random one)")
	mirror := fs.Bool("mirror", true, "allow the same player on both sides")
	maxPlies := fs.Int("max-plies", 0, "stop the game after this many plies (0 plays to the end)")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	verbose := fs.Bool("v", false, "print every move as it is played")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	opts := match.Options{Color: match.ParseColorChoice(*color), AllowMirror: mirror}
	if *seed >= 0 {
		opts.Seed = seed
	}
	first := &match.ModelChoice{ID: strings.TrimSpace(*white)}
	second := &match.ModelChoice{ID: strings.TrimSpace(*black)}
	m, err := match.Build(first, second, opts)
	if err != nil {
		return err
	}
	wp, err := a.deps.Provider(m.White.ID)
	if err != nil {
		return err
	}
	bp, err := a.deps.Provider(m.Black.ID)
	if err != nil {
		return err
	}

	playCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var plies atomic.Int64
	cb := turnloop.Callbacks{
		OnMove: func(ev turnloop.MoveEvent) {
			n := plies.Add(1)
			if *verbose && !*asJSON {
				a.println("game.move", map[string]any{"Ply": ev.Context.Ply, "Color": ev.Context.Position.Turn.Opponent(), "SAN": ev.SAN})
			}
			if *maxPlies > 0 && n >= int64(*maxPlies) {
				cancel()
			}
		},
	}

	if !*asJSON {
		a.println("game.start", map[string]any{"White": m.White.Name, "Black": m.Black.Name, "ID": m.ID})
	}
	rep, err := a.deps.Service.Play(playCtx, m, wp, bp, cb)
	if err != nil {
		return err
	}

	ranked := a.rankAll(ctx)
	summary := analysis.Summarize(rep.Annotations, ranked, nil, time.Now())
	if *asJSON {
		export, err := gameio.ExportJSON(rep.Final, rep.SANs(), gameio.ExportOptions{
			Moves:    rep.Moves(),
			Metadata: &gameio.Metadata{ModelWhite: m.White.ID, ModelBlack: m.Black.ID, Result: rep.Result},
		})
		if err != nil {
			return err
		}
		var op *openingbook.Opening
		if o, ok := openingbook.Classify(rep.Moves()); ok {
			op = &o
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(playReport{
			Opening: op,
			GameID:  rep.GameID,
			White:   m.White,
			Black:   m.Black,
			Reason:  rep.Reason.String(),
			Result:  rep.Result,
			Export:  export,
			PGN:     rep.PGN,
			Scores:  rep.Scores,
			Summary: summary,
		})
	}

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, rep.PGN)
	fmt.Fprintln(a.out)
	a.println("game.end", map[string]any{"Reason": rep.Reason, "Result": rep.Result, "Plies": len(rep.Plies)})
	if op, ok := openingbook.Classify(rep.Moves()); ok {
		a.println("game.opening", op)
	}
	if rep.Saved != nil {
		a.println("game.saved", rep.Saved)
	}
	a.printScores(rep)
	a.printSummary(summary)
	return nil
}

func (a *app) printScores(rep arena.Report) {
	if len(rep.Scores) == 0 {
		if a.deps.Engine == nil {
			a.println("score.unavailable", nil)
		}
		return
	}
	a.println("score.header", nil)
	for _, sc := range rep.Scores {
		a.println("score.row", map[string]any{
			"Ply":            sc.Meta.Ply,
			"SAN":            sc.Meta.SAN,
			"Classification": sc.Classification,
			"DeltaCp":        sc.DeltaCp,
		})
	}
}

func (a *app) printSummary(s analysis.ExportedSummary) {
	if len(s.TopMoves) > 0 {
		a.println("summary.top", nil)
		for _, it := range s.TopMoves {
			a.println("summary.item", it)
		}
	}
	if len(s.TopBlunders) > 0 {
		a.println("summary.blunders", nil)
		for _, it := range s.TopBlunders {
			a.println("summary.item", it)
		}
	}
}
