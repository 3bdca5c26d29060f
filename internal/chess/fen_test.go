package chess

import (
	"errors"
	"testing"
)

func TestStartingPositionRoundTrip(t *testing.T) {
	start := StartingPosition()
	if got := start.FEN(); got != StartingFEN {
		t.Fatalf("starting fen = %q, want %q", got, StartingFEN)
	}
	again, err := ParseFEN(start.FEN())
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if again != start {
		t.Fatalf("round trip changed the position")
	}
}

func TestParseFENRoundTrip(t *testing.T) {
	fens := []string{
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
		"8/P7/8/8/8/8/8/k6K w - - 0 1",
		"4r2k/8/8/8/8/8/4R3/4K3 b - - 37 90",
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		if got := pos.FEN(); got != fen {
			t.Errorf("FEN() = %q, want %q", got, fen)
		}
	}
}

func TestParseFENRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"too few fields":     "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0",
		"seven ranks":        "rnbqkbnr/pppppppp/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"short rank":         "rnbqkbnr/ppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"long rank":          "rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"bad symbol":         "rnbqkbnr/ppppxppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"bad active color":   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"bad castling":       "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkx - 0 1",
		"bad en passant":     "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e9 0 1",
		"halfmove not int":   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - x 1",
		"fullmove not int":   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1.5",
		"missing black king": "rnbq1bnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQ - 0 1",
		"two white kings":    "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBKKBNR w kq - 0 1",
	}
	for name, fen := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFEN(fen)
			if err == nil {
				t.Fatalf("expected error for %q", fen)
			}
			if !errors.Is(err, ErrMalformedFEN) {
				t.Fatalf("error %v does not wrap ErrMalformedFEN", err)
			}
		})
	}
}

func TestPositionIsValue(t *testing.T) {
	start := StartingPosition()
	copyPos := start.WithPiece(MustSquare("e2"), Piece{})
	if start.PieceAt(MustSquare("e2")).IsEmpty() {
		t.Fatalf("mutating a copy changed the original")
	}
	if !copyPos.PieceAt(MustSquare("e2")).IsEmpty() {
		t.Fatalf("copy was not modified")
	}
}

func TestParseSquare(t *testing.T) {
	sq, err := ParseSquare("e4")
	if err != nil {
		t.Fatalf("ParseSquare: %v", err)
	}
	if sq.File() != 4 || sq.Rank() != 3 || sq.String() != "e4" {
		t.Fatalf("unexpected square %v (file %d rank %d)", sq, sq.File(), sq.Rank())
	}
	for _, bad := range []string{"", "e", "i1", "a0", "a9", "e44"} {
		if _, err := ParseSquare(bad); err == nil {
			t.Errorf("ParseSquare(%q) should fail", bad)
		}
	}
}
