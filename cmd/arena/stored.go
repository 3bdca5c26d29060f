package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/analysis"
	"github.com/park285/chess-arena/internal/chess/gameio"
	"github.com/park285/chess-arena/internal/obslog"
)

var errNoRedis = errors.New("REDIS_URL is not configured")

func (a *app) list(ctx context.Context) error {
	if a.deps.Saved == nil {
		return errNoRedis
	}
	games, err := a.deps.Saved.List(ctx)
	if err != nil {
		return err
	}
	for _, g := range games {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", g.ID, g.CreatedAt.Local().Format("2006-01-02 15:04"), g.Title)
	}
	return nil
}

func idFlag(name string, args []string) (id, format string, err error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&id, "id", "", "saved game id")
	fs.StringVar(&format, "format", "pgn", "output format: pgn, json or replay")
	if err := fs.Parse(args); err != nil {
		return "", "", fmt.Errorf("%v: %w", err, errUsage)
	}
	if id == "" {
		return "", "", fmt.Errorf("-id is required: %w", errUsage)
	}
	return id, format, nil
}

func (a *app) show(ctx context.Context, args []string) error {
	if a.deps.Saved == nil {
		return errNoRedis
	}
	id, format, err := idFlag("show", args)
	if err != nil {
		return err
	}
	g, err := a.deps.Saved.Load(ctx, id)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		export, err := gameio.ExportJSON(g.Import.Position, g.Import.PgnMoves, gameio.ExportOptions{Metadata: g.Import.Metadata})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(export)
	case "replay":
		r, err := gameio.NewReplay(g.Import.PgnMoves, gameio.ReplayOptions{Metadata: g.Import.Metadata})
		if err != nil {
			return err
		}
		for {
			s := r.Current()
			a.println("replay.step", map[string]any{"Index": s.Index, "Total": r.Len(), "SAN": s.SAN, "FEN": s.FEN})
			if s.Index == r.Len() {
				return nil
			}
			if _, err := r.Next(); err != nil {
				return err
			}
		}
	}
	pgn := g.PGN
	if pgn == "" {
		pgn = g.Import.Record.String()
	}
	fmt.Fprintln(a.out, pgn)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if a.deps.Saved == nil {
		return errNoRedis
	}
	id, _, err := idFlag("delete", args)
	if err != nil {
		return err
	}
	return a.deps.Saved.Delete(ctx, id)
}

// rankAll ranks every stored record; failures only cost the report.
func (a *app) rankAll(ctx context.Context) []analysis.RankedModel {
	recs, err := a.deps.Records.ListRecords(ctx, time.Time{})
	if err != nil {
		obslog.L().Warn("arena_list_records_failed", zap.Error(err))
		return nil
	}
	w := a.cfg.Weights
	return analysis.Rank(analysis.Aggregate(recs), &w)
}

func (a *app) ranking(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ranking", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	since := fs.Duration("since", 0, "only games that ended within this window (0 is all)")
	top := fs.Int("top", 0, "show at most this many models (0 is all)")
	asJSON := fs.Bool("json", false, "print the persisted ranking JSON")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	var from time.Time
	if *since > 0 {
		from = time.Now().Add(-*since)
	}
	recs, err := a.deps.Records.ListRecords(ctx, from)
	if err != nil {
		return err
	}
	w := a.cfg.Weights
	ranked := analysis.Rank(analysis.Aggregate(recs), &w)
	if *top > 0 && len(ranked) > *top {
		ranked = ranked[:*top]
	}
	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis.SerializeRanking(ranked, time.Now()))
	}
	if len(ranked) == 0 {
		a.println("ranking.empty", nil)
		return nil
	}
	a.println("ranking.header", map[string]any{"Games": len(recs)})
	for _, r := range ranked {
		a.println("ranking.row", r)
	}
	return nil
}

func (a *app) models(ctx context.Context) error {
	if a.deps.Client == nil {
		return errors.New("MODEL_ENDPOINT is not configured")
	}
	list, err := a.deps.Client.Models(ctx)
	if err != nil {
		return err
	}
	for _, m := range list {
		fmt.Fprintf(a.out, "%s\t%s\n", m.ID, m.Name)
	}
	return nil
}
