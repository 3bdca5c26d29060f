package chess

import (
	"errors"
	"strings"
)

const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type CastlingRights struct {
	WhiteKingSide  bool
	WhiteQueenSide bool
	BlackKingSide  bool
	BlackQueenSide bool
}

func (c CastlingRights) has(color Color, kingSide bool) bool {
	switch {
	case color == White && kingSide:
		return c.WhiteKingSide
	case color == White:
		return c.WhiteQueenSide
	case kingSide:
		return c.BlackKingSide
	default:
		return c.BlackQueenSide
	}
}

func (c CastlingRights) String() string {
	var b strings.Builder
	if c.WhiteKingSide {
		b.WriteByte('K')
	}
	if c.WhiteQueenSide {
		b.WriteByte('Q')
	}
	if c.BlackKingSide {
		b.WriteByte('k')
	}
	if c.BlackQueenSide {
		b.WriteByte('q')
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// Position is a complete game state. It is a plain value: copying it yields
// an independent snapshot, and every move produces a new Position.
type Position struct {
	board          [64]Piece
	Turn           Color
	Castling       CastlingRights
	EnPassant      Square
	HalfmoveClock  int
	FullmoveNumber int
}

// StartingPosition returns the standard initial position.
func StartingPosition() Position {
	p, err := ParseFEN(StartingFEN)
	if err != nil {
		panic(err)
	}
	return p
}

// EmptyPosition returns a board with no pieces, white to move.
func EmptyPosition() Position {
	return Position{Turn: White, EnPassant: NoSquare, FullmoveNumber: 1}
}

func (p Position) PieceAt(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return p.board[sq]
}

// WithPiece returns a copy of p with sq set to pc (use Piece{} to clear).
func (p Position) WithPiece(sq Square, pc Piece) Position {
	if sq.Valid() {
		p.board[sq] = pc
	}
	return p
}

// KingSquare returns the first king of color found scanning from a1.
func (p Position) KingSquare(color Color) (Square, bool) {
	for sq := Square(0); sq < 64; sq++ {
		pc := p.board[sq]
		if pc.Type == King && pc.Color == color {
			return sq, true
		}
	}
	return NoSquare, false
}

// InCheck reports whether color's king is attacked.
func (p Position) InCheck(color Color) bool {
	ksq, ok := p.KingSquare(color)
	if !ok {
		return false
	}
	return p.IsAttacked(ksq, color.Opponent())
}

type MoveFlag uint8

const (
	FlagCapture MoveFlag = 1 << iota
	FlagCastle
	FlagEnPassant
	FlagDoublePush
)

// Move is meaningful only relative to the Position it was generated from.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
	Flags     MoveFlag
}

func (m Move) IsCapture() bool    { return m.Flags&FlagCapture != 0 }
func (m Move) IsCastle() bool     { return m.Flags&FlagCastle != 0 }
func (m Move) IsEnPassant() bool  { return m.Flags&FlagEnPassant != 0 }
func (m Move) IsDoublePush() bool { return m.Flags&FlagDoublePush != 0 }

// UCI renders the move in long algebraic form, e.g. e2e4 or a7a8q.
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion.IsPromotion() {
		s += strings.ToLower(m.Promotion.Letter())
	}
	return s
}

func (m Move) String() string { return m.UCI() }

// ParseUCI parses long algebraic notation. Flags are left empty; the
// validator fills them from the matching generated move.
func ParseUCI(s string) (Move, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 && len(s) != 5 {
		return Move{}, &notationError{kind: "uci", text: s}
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, &notationError{kind: "uci", text: s}
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, &notationError{kind: "uci", text: s}
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		promo, ok := ParsePromotion(s[4:])
		if !ok {
			return Move{}, &notationError{kind: "uci", text: s}
		}
		m.Promotion = promo
	}
	return m, nil
}

// sameMove matches on from, to and promotion only.
func sameMove(a, b Move) bool {
	return a.From == b.From && a.To == b.To && a.Promotion == b.Promotion
}

// MoveUndo carries everything needed to invert a move without recomputation.
type MoveUndo struct {
	Move           Move
	Moved          Piece
	Captured       Piece
	CapturedSquare Square
	RookFrom       Square
	RookTo         Square
	PrevCastling   CastlingRights
	PrevEnPassant  Square
	PrevHalfmove   int
	PrevFullmove   int
	PrevTurn       Color
}

type EndReason uint8

const (
	NotOver EndReason = iota
	Checkmate
	Stalemate
	FiftyMoveRule
)

func (r EndReason) String() string {
	switch r {
	case NotOver:
		return ""
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case FiftyMoveRule:
		return "fifty-move"
	default:
		return "unknown"
	}
}

// GameStatus is derived from a Position and never stored on its own.
type GameStatus struct {
	InCheck  bool
	GameOver bool
	Reason   EndReason
	// Winner is meaningful only when HasWinner is set.
	Winner    Color
	HasWinner bool
}

var ErrInvalidNotation = errors.New("invalid move notation")

type notationError struct {
	kind string
	text string
}

func (e *notationError) Error() string {
	return "invalid " + e.kind + " move " + `"` + e.text + `"`
}

func (e *notationError) Unwrap() error { return ErrInvalidNotation }
