package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/arenabuilder"
	appcfg "github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/internal/obslog"
)

const usage = `usage: arena <command> [flags]

commands:
  play     play one game (-white, -black, -color, -seed, -max-plies, -json)
  list     list saved games (needs REDIS_URL)
  show     print a saved game (-id, -format pgn|json|replay)
  delete   delete a saved game (-id)
  ranking  rank models from finished-game records (-since, -top)
  models   list models offered by MODEL_ENDPOINT`

var errUsage = errors.New(usage)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		obslog.L().Error("arena_failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg  *appcfg.AppConfig
	deps *arenabuilder.Deps
	msgs *msgcat.Catalog
	out  io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cfg, err := appcfg.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}
	deps, err := arenabuilder.New(ctx, cfg, obslog.L())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := deps.Close(); cerr != nil {
			obslog.L().Warn("arena_close_failed", zap.Error(cerr))
		}
	}()

	a := &app{cfg: cfg, deps: deps, msgs: msgs, out: out}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "play":
		return a.play(ctx, rest)
	case "list":
		return a.list(ctx)
	case "show":
		return a.show(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "ranking":
		return a.ranking(ctx, rest)
	case "models":
		return a.models(ctx)
	case "help", "-h", "--help":
		fmt.Fprintln(out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

func (a *app) println(key string, data any) {
	fmt.Fprintln(a.out, a.msgs.RenderOr(key, data))
}
