package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunUsage(t *testing.T) {
	if err := run(context.Background(), nil, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Fatalf("err = %v", err)
	}
	if err := run(context.Background(), []string{"bogus"}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Fatalf("err = %v", err)
	}
}

func TestPlayStopsAtMaxPlies(t *testing.T) {
	t.Setenv("TURN_PER_MOVE_SECONDS", "2")
	t.Setenv("TURN_TICK_MS", "10")
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx, []string{"play", "-white", "first", "-black", "random:7", "-max-plies", "4", "-v"}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{"first (white) vs random:7 (black)", "[WhiteModel \"first\"]", "Game over: stopped", "No evaluator configured"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestPlayJSON(t *testing.T) {
	t.Setenv("TURN_PER_MOVE_SECONDS", "2")
	t.Setenv("TURN_TICK_MS", "10")
	var out bytes.Buffer
	err := run(context.Background(), []string{"play", "-white", "random:1", "-black", "random:2", "-color", "black", "-max-plies", "2", "-json"}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var rep playReport
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if rep.White.ID != "random:2" || rep.Reason != "stopped" || rep.Export.Version != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if len(rep.Export.PgnMoves) < 2 {
		t.Fatalf("moves = %v", rep.Export.PgnMoves)
	}
}

func TestStoredCommandsNeedRedis(t *testing.T) {
	for _, cmd := range [][]string{{"list"}, {"show", "-id", "x"}, {"delete", "-id", "x"}} {
		if err := run(context.Background(), cmd, &bytes.Buffer{}); !errors.Is(err, errNoRedis) {
			t.Fatalf("%v: err = %v", cmd, err)
		}
	}
}

func TestRankingEmpty(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"ranking"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "No finished games recorded yet.") {
		t.Fatalf("out = %q", out.String())
	}
}
