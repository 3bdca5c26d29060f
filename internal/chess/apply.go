package chess

var rookCorners = [4]struct {
	sq       Square
	color    Color
	kingSide bool
}{
	{sq: 7, color: White, kingSide: true},
	{sq: 0, color: White, kingSide: false},
	{sq: 63, color: Black, kingSide: true},
	{sq: 56, color: Black, kingSide: false},
}

func (c *CastlingRights) clear(color Color, kingSide bool) {
	switch {
	case color == White && kingSide:
		c.WhiteKingSide = false
	case color == White:
		c.WhiteQueenSide = false
	case kingSide:
		c.BlackKingSide = false
	default:
		c.BlackQueenSide = false
	}
}

// apply plays m without any legality check. m must carry the flags of the
// generated move it came from.
func (p Position) apply(m Move) (Position, MoveUndo) {
	moved := p.board[m.From]
	undo := MoveUndo{
		Move:           m,
		Moved:          moved,
		CapturedSquare: NoSquare,
		RookFrom:       NoSquare,
		RookTo:         NoSquare,
		PrevCastling:   p.Castling,
		PrevEnPassant:  p.EnPassant,
		PrevHalfmove:   p.HalfmoveClock,
		PrevFullmove:   p.FullmoveNumber,
		PrevTurn:       p.Turn,
	}
	next := p

	if m.IsCastle() && moved.Type == King {
		if cs, ok := castleSideFor(m); ok {
			rank := m.From.Rank()
			rookFrom, _ := SquareAt(cs.rookFrom, rank)
			rookTo, _ := SquareAt(cs.rookTo, rank)
			if rook := next.board[rookFrom]; rook.Type == Rook {
				next.board[rookFrom] = Piece{}
				next.board[rookTo] = rook
				undo.RookFrom, undo.RookTo = rookFrom, rookTo
			}
		}
	}

	if m.IsEnPassant() {
		if capSq, ok := m.To.Offset(0, -pawnDirection(moved.Color)); ok {
			undo.Captured = next.board[capSq]
			undo.CapturedSquare = capSq
			next.board[capSq] = Piece{}
		}
	} else if captured := next.board[m.To]; !captured.IsEmpty() {
		undo.Captured = captured
		undo.CapturedSquare = m.To
	}

	placed := moved
	if m.Promotion.IsPromotion() && moved.Type == Pawn {
		placed.Type = m.Promotion
	}
	next.board[m.From] = Piece{}
	next.board[m.To] = placed

	if moved.Type == King {
		next.Castling.clear(moved.Color, true)
		next.Castling.clear(moved.Color, false)
	}
	for _, corner := range rookCorners {
		if (moved.Type == Rook && m.From == corner.sq && moved.Color == corner.color) ||
			(undo.Captured.Type == Rook && undo.CapturedSquare == corner.sq && undo.Captured.Color == corner.color) {
			next.Castling.clear(corner.color, corner.kingSide)
		}
	}

	next.EnPassant = NoSquare
	if moved.Type == Pawn && (m.To.Rank()-m.From.Rank() == 2 || m.From.Rank()-m.To.Rank() == 2) {
		if behind, ok := m.From.Offset(0, pawnDirection(moved.Color)); ok {
			next.EnPassant = behind
		}
	}

	if moved.Type == Pawn || !undo.Captured.IsEmpty() {
		next.HalfmoveClock = 0
	} else {
		next.HalfmoveClock++
	}
	if moved.Color == Black {
		next.FullmoveNumber++
	}
	next.Turn = p.Turn.Opponent()
	return next, undo
}

// Unmake returns the position that undo was recorded from.
func (p Position) Unmake(undo MoveUndo) Position {
	prev := p
	m := undo.Move
	prev.board[m.To] = Piece{}
	prev.board[m.From] = undo.Moved
	if undo.CapturedSquare.Valid() {
		prev.board[undo.CapturedSquare] = undo.Captured
	}
	if undo.RookFrom.Valid() && undo.RookTo.Valid() {
		prev.board[undo.RookFrom] = prev.board[undo.RookTo]
		prev.board[undo.RookTo] = Piece{}
	}
	prev.Castling = undo.PrevCastling
	prev.EnPassant = undo.PrevEnPassant
	prev.HalfmoveClock = undo.PrevHalfmove
	prev.FullmoveNumber = undo.PrevFullmove
	prev.Turn = undo.PrevTurn
	return prev
}
