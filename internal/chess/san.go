package chess

import "strings"

// FormatSAN renders m, already accepted on before, in standard algebraic
// notation. after and status describe the resulting position.
func FormatSAN(before Position, m Move, after Position, status GameStatus) string {
	pc := before.PieceAt(m.From)
	if pc.IsEmpty() {
		return "??"
	}

	var b strings.Builder
	if m.IsCastle() {
		if m.To.File() == 6 {
			b.WriteString("O-O")
		} else {
			b.WriteString("O-O-O")
		}
		b.WriteString(sanSuffix(status))
		return b.String()
	}

	capture := m.IsCapture() || m.IsEnPassant() || !before.PieceAt(m.To).IsEmpty()
	if pc.Type == Pawn {
		if capture {
			b.WriteByte(m.From.FileChar())
		}
	} else {
		b.WriteString(pc.Type.Letter())
		b.WriteString(disambiguation(before, m, pc))
	}
	if capture {
		b.WriteByte('x')
	}
	b.WriteString(m.To.String())
	if m.Promotion.IsPromotion() {
		b.WriteByte('=')
		b.WriteString(m.Promotion.Letter())
	}
	b.WriteString(sanSuffix(status))
	return b.String()
}

func sanSuffix(status GameStatus) string {
	if status.GameOver && status.Reason == Checkmate {
		return "#"
	}
	if status.InCheck {
		return "+"
	}
	return ""
}

// disambiguation considers other legal moves by same-type pieces to the same
// target. Kings and pawns never need it.
func disambiguation(before Position, m Move, pc Piece) string {
	if pc.Type == Pawn || pc.Type == King {
		return ""
	}
	var rivals []Square
	for _, other := range before.LegalMoves(pc.Color) {
		if other.To != m.To || other.From == m.From {
			continue
		}
		if before.PieceAt(other.From) == pc {
			rivals = append(rivals, other.From)
		}
	}
	if len(rivals) == 0 {
		return ""
	}
	fileConflict, rankConflict := false, false
	for _, sq := range rivals {
		if sq.File() == m.From.File() {
			fileConflict = true
		}
		if sq.Rank() == m.From.Rank() {
			rankConflict = true
		}
	}
	switch {
	case fileConflict && rankConflict:
		return m.From.String()
	case fileConflict:
		return string(m.From.RankChar())
	default:
		return string(m.From.FileChar())
	}
}

// SANFor returns the SAN of a legal move played from p.
func (p Position) SANFor(m Move) (string, error) {
	res := ValidateMove(p, m, ValidateOptions{})
	if !res.Legal {
		return "", res.Err()
	}
	return res.SAN, nil
}

// MoveFromSAN finds the legal move whose SAN matches san. Check and mate
// suffixes and annotation glyphs are ignored when comparing.
func (p Position) MoveFromSAN(san string) (Move, error) {
	want := normalizeSAN(san)
	if want == "" {
		return Move{}, &notationError{kind: "san", text: san}
	}
	for _, m := range p.LegalMoves(p.Turn) {
		next, _ := p.apply(m)
		if normalizeSAN(FormatSAN(p, m, next, GameStatus{})) == want {
			return m, nil
		}
	}
	return Move{}, &notationError{kind: "san", text: san}
}

func normalizeSAN(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "+#!?")
	s = strings.ReplaceAll(s, "0-0-0", "O-O-O")
	s = strings.ReplaceAll(s, "0-0", "O-O")
	return s
}
