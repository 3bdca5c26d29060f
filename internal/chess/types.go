package chess

import (
	"fmt"
	"strings"
)

type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// FENChar returns the active-colour field value used by FEN.
func (c Color) FENChar() string {
	if c == White {
		return "w"
	}
	return "b"
}

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w", "white":
		return White, nil
	case "b", "black":
		return Black, nil
	default:
		return White, fmt.Errorf("unknown color %q", s)
	}
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(text []byte) error {
	v, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// Letter is the upper-case SAN letter; pawns have none.
func (p PieceType) Letter() string {
	switch p {
	case Knight:
		return "N"
	case Bishop:
		return "B"
	case Rook:
		return "R"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return ""
	}
}

func (p PieceType) String() string {
	switch p {
	case NoPieceType:
		return "none"
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return fmt.Sprintf("piece(%d)", uint8(p))
	}
}

// IsPromotion reports whether a pawn may promote to p.
func (p PieceType) IsPromotion() bool {
	return p == Queen || p == Rook || p == Bishop || p == Knight
}

var promotionPieces = [4]PieceType{Queen, Rook, Bishop, Knight}

// ParsePromotion accepts q, r, b, n in either case.
func ParsePromotion(s string) (PieceType, bool) {
	switch strings.ToLower(s) {
	case "q":
		return Queen, true
	case "r":
		return Rook, true
	case "b":
		return Bishop, true
	case "n":
		return Knight, true
	default:
		return NoPieceType, false
	}
}

// Piece is a coloured piece. The zero value is an empty square.
type Piece struct {
	Color Color
	Type  PieceType
}

func (p Piece) IsEmpty() bool { return p.Type == NoPieceType }

// Symbol is the FEN letter: upper case for white.
func (p Piece) Symbol() byte {
	var b byte
	switch p.Type {
	case Pawn:
		b = 'p'
	case Knight:
		b = 'n'
	case Bishop:
		b = 'b'
	case Rook:
		b = 'r'
	case Queen:
		b = 'q'
	case King:
		b = 'k'
	default:
		return '.'
	}
	if p.Color == White {
		b -= 'a' - 'A'
	}
	return b
}

func pieceFromSymbol(r byte) (Piece, bool) {
	color := Black
	lower := r
	if r >= 'A' && r <= 'Z' {
		color = White
		lower = r + ('a' - 'A')
	}
	var t PieceType
	switch lower {
	case 'p':
		t = Pawn
	case 'n':
		t = Knight
	case 'b':
		t = Bishop
	case 'r':
		t = Rook
	case 'q':
		t = Queen
	case 'k':
		t = King
	default:
		return Piece{}, false
	}
	return Piece{Color: color, Type: t}, true
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "empty"
	}
	return p.Color.String() + " " + p.Type.String()
}

// Square indexes the board from a1 (0) to h8 (63).
type Square int8

const NoSquare Square = -1

func SquareAt(file, rank int) (Square, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, false
	}
	return Square(rank*8 + file), true
}

func MustSquare(name string) Square {
	sq, err := ParseSquare(name)
	if err != nil {
		panic(err)
	}
	return sq
}

func ParseSquare(name string) (Square, error) {
	if len(name) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", name)
	}
	sq, ok := SquareAt(int(name[0])-'a', int(name[1])-'1')
	if !ok {
		return NoSquare, fmt.Errorf("invalid square %q", name)
	}
	return sq, nil
}

func (s Square) Valid() bool { return s >= 0 && s < 64 }

func (s Square) File() int { return int(s) % 8 }

func (s Square) Rank() int { return int(s) / 8 }

// Offset returns the square df files and dr ranks away, if on the board.
func (s Square) Offset(df, dr int) (Square, bool) {
	return SquareAt(s.File()+df, s.Rank()+dr)
}

func (s Square) FileChar() byte { return byte('a' + s.File()) }

func (s Square) RankChar() byte { return byte('1' + s.Rank()) }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{s.FileChar(), s.RankChar()})
}
