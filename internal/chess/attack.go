package chess

// IsAttacked reports whether any piece of byColor attacks sq.
func (p Position) IsAttacked(sq Square, byColor Color) bool {
	if !sq.Valid() {
		return false
	}

	// A pawn of byColor attacks from one rank behind, relative to its direction.
	dir := pawnDirection(byColor)
	for _, df := range [2]int{-1, 1} {
		if from, ok := sq.Offset(df, -dir); ok {
			pc := p.board[from]
			if pc.Type == Pawn && pc.Color == byColor {
				return true
			}
		}
	}

	if p.attackedByStep(sq, byColor, knightOffsets[:], Knight) {
		return true
	}
	if p.attackedByStep(sq, byColor, kingOffsets[:], King) {
		return true
	}
	if p.attackedByRay(sq, byColor, diagonalDirs, Bishop) {
		return true
	}
	return p.attackedByRay(sq, byColor, straightDirs, Rook)
}

func (p Position) attackedByStep(sq Square, byColor Color, offsets []offset, t PieceType) bool {
	for _, o := range offsets {
		from, ok := sq.Offset(o.df, o.dr)
		if !ok {
			continue
		}
		pc := p.board[from]
		if pc.Type == t && pc.Color == byColor {
			return true
		}
	}
	return false
}

// attackedByRay treats queens as both bishops and rooks.
func (p Position) attackedByRay(sq Square, byColor Color, dirs []offset, t PieceType) bool {
	for _, d := range dirs {
		cur := sq
		for {
			next, ok := cur.Offset(d.df, d.dr)
			if !ok {
				break
			}
			cur = next
			pc := p.board[cur]
			if pc.IsEmpty() {
				continue
			}
			if pc.Color == byColor && (pc.Type == t || pc.Type == Queen) {
				return true
			}
			break
		}
	}
	return false
}

// castlePathSafe checks the king's current, transit and destination squares.
func (p Position) castlePathSafe(m Move, color Color) bool {
	cs, ok := castleSideFor(m)
	if !ok {
		return false
	}
	rank := homeRank(color)
	transit, _ := SquareAt(cs.transit, rank)
	enemy := color.Opponent()
	for _, sq := range [3]Square{m.From, transit, m.To} {
		if p.IsAttacked(sq, enemy) {
			return false
		}
	}
	return true
}
