package chess

// LegalMoves returns the moves color may play, in PseudoLegalMoves order.
func (p Position) LegalMoves(color Color) []Move {
	pseudo := p.PseudoLegalMoves(color)
	legal := pseudo[:0]
	for _, m := range pseudo {
		if p.isLegal(m, color) {
			legal = append(legal, m)
		}
	}
	return legal
}

// EvaluateStatus derives the game status for the side to move. The fifty-move
// rule is checked first; threefold repetition is not detected.
func (p Position) EvaluateStatus() GameStatus {
	inCheck := p.InCheck(p.Turn)
	if p.HalfmoveClock >= 100 {
		return GameStatus{InCheck: inCheck, GameOver: true, Reason: FiftyMoveRule}
	}
	if p.hasLegalMove(p.Turn) {
		return GameStatus{InCheck: inCheck}
	}
	if inCheck {
		return GameStatus{InCheck: true, GameOver: true, Reason: Checkmate, Winner: p.Turn.Opponent(), HasWinner: true}
	}
	return GameStatus{GameOver: true, Reason: Stalemate}
}

func (p Position) hasLegalMove(color Color) bool {
	for _, m := range p.PseudoLegalMoves(color) {
		if p.isLegal(m, color) {
			return true
		}
	}
	return false
}

// isLegal expects a generated pseudo-legal move.
func (p Position) isLegal(m Move, color Color) bool {
	if m.IsCastle() && !p.castlePathSafe(m, color) {
		return false
	}
	next, _ := p.apply(m)
	return !next.InCheck(color)
}
