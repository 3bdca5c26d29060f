package chess

import (
	"errors"
	"testing"
)

func TestFormatSANDisambiguation(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		move string
		want string
	}{
		{"file", "7k/8/8/8/8/8/8/KN3N2 w - - 0 1", "b1d2", "Nbd2"},
		{"rank", "7k/8/8/8/R7/8/8/R3K3 w - - 0 1", "a1a2", "R1a2"},
		{"both", "8/7k/8/8/8/Q7/8/Q1Q3K1 w - - 0 1", "a1b2", "Qa1b2"},
		{"none", StartingFEN, "g1f3", "Nf3"},
		{"pawn capture", "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1", "e4d5", "exd5"},
		{"capture with check", "4k3/8/8/8/8/8/4r3/4RK2 w - - 0 1", "e1e2", "Rxe2+"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustFEN(t, tc.fen)
			san, err := pos.SANFor(mv(t, tc.move))
			if err != nil {
				t.Fatalf("SANFor: %v", err)
			}
			if san != tc.want {
				t.Fatalf("san = %q, want %q", san, tc.want)
			}
		})
	}
}

func TestMoveFromSAN(t *testing.T) {
	pos := StartingPosition()
	for _, san := range []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6", "O-O"} {
		m, err := pos.MoveFromSAN(san)
		if err != nil {
			t.Fatalf("MoveFromSAN(%q): %v", san, err)
		}
		next, got, err := pos.Play(m)
		if err != nil {
			t.Fatalf("Play(%v): %v", m, err)
		}
		if got != san {
			t.Fatalf("round trip san = %q, want %q", got, san)
		}
		pos = next
	}
	if _, err := pos.MoveFromSAN("Qh5"); !errors.Is(err, ErrInvalidNotation) {
		t.Fatalf("expected ErrInvalidNotation, got %v", err)
	}
}

func TestSANSuffixes(t *testing.T) {
	pos := StartingPosition()
	var last string
	for _, uci := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		next, san, err := pos.Play(mv(t, uci))
		if err != nil {
			t.Fatalf("Play(%s): %v", uci, err)
		}
		pos, last = next, san
	}
	if last != "Qh4#" {
		t.Fatalf("mating move san = %q", last)
	}
}
