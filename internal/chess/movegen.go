package chess

type offset struct{ df, dr int }

var (
	knightOffsets = [8]offset{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffsets   = [8]offset{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	diagonalDirs  = []offset{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	straightDirs  = []offset{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	queenDirs     = append(append([]offset{}, diagonalDirs...), straightDirs...)
)

func pawnDirection(c Color) int {
	if c == White {
		return 1
	}
	return -1
}

func pawnStartRank(c Color) int {
	if c == White {
		return 1
	}
	return 6
}

func lastRank(c Color) int {
	if c == White {
		return 7
	}
	return 0
}

// homeRank is the back rank a colour castles on.
func homeRank(c Color) int {
	if c == White {
		return 0
	}
	return 7
}

// PseudoLegalMoves enumerates every move for color ignoring self-check.
// Castles are emitted when the right is held and the squares between king
// and rook are empty; attack safety is left to the validator. Output order
// is a1..h8 by origin square, then by direction table.
func (p Position) PseudoLegalMoves(color Color) []Move {
	moves := make([]Move, 0, 48)
	for sq := Square(0); sq < 64; sq++ {
		pc := p.board[sq]
		if pc.IsEmpty() || pc.Color != color {
			continue
		}
		moves = p.appendPieceMoves(moves, sq, pc)
	}
	return moves
}

func (p Position) pieceMoves(from Square) []Move {
	pc := p.PieceAt(from)
	if pc.IsEmpty() {
		return nil
	}
	return p.appendPieceMoves(nil, from, pc)
}

func (p Position) appendPieceMoves(moves []Move, from Square, pc Piece) []Move {
	switch pc.Type {
	case Pawn:
		return p.appendPawnMoves(moves, from, pc.Color)
	case Knight:
		return p.appendStepMoves(moves, from, pc.Color, knightOffsets[:])
	case Bishop:
		return p.appendSlideMoves(moves, from, pc.Color, diagonalDirs)
	case Rook:
		return p.appendSlideMoves(moves, from, pc.Color, straightDirs)
	case Queen:
		return p.appendSlideMoves(moves, from, pc.Color, queenDirs)
	case King:
		moves = p.appendStepMoves(moves, from, pc.Color, kingOffsets[:])
		return p.appendCastleMoves(moves, from, pc.Color)
	case NoPieceType:
		return moves
	}
	return moves
}

func appendPawnAdvance(moves []Move, m Move, color Color) []Move {
	if m.To.Rank() != lastRank(color) {
		return append(moves, m)
	}
	for _, promo := range promotionPieces {
		pm := m
		pm.Promotion = promo
		moves = append(moves, pm)
	}
	return moves
}

func (p Position) appendPawnMoves(moves []Move, from Square, color Color) []Move {
	dir := pawnDirection(color)

	if one, ok := from.Offset(0, dir); ok && p.board[one].IsEmpty() {
		moves = appendPawnAdvance(moves, Move{From: from, To: one}, color)
		if from.Rank() == pawnStartRank(color) {
			if two, ok := from.Offset(0, 2*dir); ok && p.board[two].IsEmpty() {
				moves = append(moves, Move{From: from, To: two, Flags: FlagDoublePush})
			}
		}
	}

	for _, df := range [2]int{-1, 1} {
		to, ok := from.Offset(df, dir)
		if !ok {
			continue
		}
		target := p.board[to]
		switch {
		case !target.IsEmpty() && target.Color != color:
			moves = appendPawnAdvance(moves, Move{From: from, To: to, Flags: FlagCapture}, color)
		case target.IsEmpty() && p.EnPassant == to:
			moves = append(moves, Move{From: from, To: to, Flags: FlagCapture | FlagEnPassant})
		}
	}
	return moves
}

func (p Position) appendStepMoves(moves []Move, from Square, color Color, offsets []offset) []Move {
	for _, o := range offsets {
		to, ok := from.Offset(o.df, o.dr)
		if !ok {
			continue
		}
		target := p.board[to]
		if target.IsEmpty() {
			moves = append(moves, Move{From: from, To: to})
		} else if target.Color != color {
			moves = append(moves, Move{From: from, To: to, Flags: FlagCapture})
		}
	}
	return moves
}

func (p Position) appendSlideMoves(moves []Move, from Square, color Color, dirs []offset) []Move {
	for _, d := range dirs {
		to := from
		for {
			next, ok := to.Offset(d.df, d.dr)
			if !ok {
				break
			}
			to = next
			target := p.board[to]
			if target.IsEmpty() {
				moves = append(moves, Move{From: from, To: to})
				continue
			}
			if target.Color != color {
				moves = append(moves, Move{From: from, To: to, Flags: FlagCapture})
			}
			break
		}
	}
	return moves
}

type castleSide struct {
	kingSide bool
	kingTo   int // file
	rookFrom int
	rookTo   int
	between  []int
	transit  int
}

var castleSides = [2]castleSide{
	{kingSide: true, kingTo: 6, rookFrom: 7, rookTo: 5, between: []int{5, 6}, transit: 5},
	{kingSide: false, kingTo: 2, rookFrom: 0, rookTo: 3, between: []int{1, 2, 3}, transit: 3},
}

func castleSideFor(m Move) (castleSide, bool) {
	for _, cs := range castleSides {
		if m.To.File() == cs.kingTo {
			return cs, true
		}
	}
	return castleSide{}, false
}

func (p Position) appendCastleMoves(moves []Move, from Square, color Color) []Move {
	rank := homeRank(color)
	if from.File() != 4 || from.Rank() != rank {
		return moves
	}
	for _, cs := range castleSides {
		if !p.Castling.has(color, cs.kingSide) {
			continue
		}
		rookSq, _ := SquareAt(cs.rookFrom, rank)
		if rook := p.board[rookSq]; rook.Type != Rook || rook.Color != color {
			continue
		}
		pathEmpty := true
		for _, f := range cs.between {
			sq, _ := SquareAt(f, rank)
			if !p.board[sq].IsEmpty() {
				pathEmpty = false
				break
			}
		}
		if !pathEmpty {
			continue
		}
		to, _ := SquareAt(cs.kingTo, rank)
		moves = append(moves, Move{From: from, To: to, Flags: FlagCastle})
	}
	return moves
}
