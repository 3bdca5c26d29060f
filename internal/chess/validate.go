package chess

import (
	"errors"
	"fmt"
)

type IllegalReason uint8

const (
	ReasonNone IllegalReason = iota
	NoPiece
	WrongTurn
	NotPseudoLegal
	LeavesKingInCheck
	BadCastle
	BadEnPassant
	PromotionMissing
	PromotionInvalid
)

func (r IllegalReason) String() string {
	switch r {
	case ReasonNone:
		return ""
	case NoPiece:
		return "noPiece"
	case WrongTurn:
		return "wrongTurn"
	case NotPseudoLegal:
		return "notPseudoLegal"
	case LeavesKingInCheck:
		return "leavesKingInCheck"
	case BadCastle:
		return "badCastle"
	case BadEnPassant:
		return "badEnPassant"
	case PromotionMissing:
		return "promotionMissing"
	case PromotionInvalid:
		return "promotionInvalid"
	default:
		return "unknown"
	}
}

var ErrIllegalMove = errors.New("illegal move")

type IllegalMoveError struct {
	Move    Move
	Reason  IllegalReason
	Message string
}

func (e *IllegalMoveError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("illegal move %s: %s: %s", e.Move.UCI(), e.Reason, e.Message)
	}
	return fmt.Sprintf("illegal move %s: %s", e.Move.UCI(), e.Reason)
}

func (e *IllegalMoveError) Unwrap() error { return ErrIllegalMove }

type ValidateOptions struct {
	// PGN, when set, receives the accepted ply. The record is copied, not mutated.
	PGN *PgnRecord
	// Headers starts a fresh record when PGN is nil.
	Headers *PgnHeaders
}

type ValidationResult struct {
	Legal   bool
	Reason  IllegalReason
	Message string

	Move   Move
	Next   Position
	Undo   MoveUndo
	SAN    string
	Status GameStatus
	PGN    *PgnRecord
}

// Err returns nil for a legal result and an *IllegalMoveError otherwise.
func (r ValidationResult) Err() error {
	if r.Legal {
		return nil
	}
	return &IllegalMoveError{Move: r.Move, Reason: r.Reason, Message: r.Message}
}

func reject(m Move, reason IllegalReason, msg string) ValidationResult {
	return ValidationResult{Move: m, Reason: reason, Message: msg}
}

// ValidateMove checks candidate against pos and, when legal, plays it.
// Only from, to and promotion are read from the candidate; its flags are
// replaced by those of the matching generated move. A caller-set castle or
// en passant flag on a move that is not one is rejected.
func ValidateMove(pos Position, candidate Move, opts ValidateOptions) ValidationResult {
	pc := pos.PieceAt(candidate.From)
	if pc.IsEmpty() {
		return reject(candidate, NoPiece, fmt.Sprintf("no piece on %s", candidate.From))
	}
	if pc.Color != pos.Turn {
		return reject(candidate, WrongTurn, fmt.Sprintf("%s to move", pos.Turn))
	}

	matched, res, ok := matchGenerated(pos, pc, candidate)
	if !ok {
		return res
	}

	if candidate.IsEnPassant() || matched.IsEnPassant() {
		if !matched.IsEnPassant() || pos.EnPassant != matched.To {
			return reject(candidate, BadEnPassant, "en passant target mismatch")
		}
	}

	if candidate.IsCastle() || matched.IsCastle() {
		if !matched.IsCastle() {
			return reject(candidate, BadCastle, "not a castling move")
		}
		if pos.InCheck(pc.Color) {
			return reject(candidate, BadCastle, "king is in check")
		}
		if !pos.castlePathSafe(matched, pc.Color) {
			return reject(candidate, BadCastle, "king passes through an attacked square")
		}
	}

	next, undo := pos.apply(matched)
	if next.InCheck(pc.Color) {
		return reject(candidate, LeavesKingInCheck, "")
	}

	status := next.EvaluateStatus()
	res = ValidationResult{
		Legal:  true,
		Move:   matched,
		Next:   next,
		Undo:   undo,
		Status: status,
		SAN:    FormatSAN(pos, matched, next, status),
	}

	switch {
	case opts.PGN != nil:
		rec := opts.PGN.Append(res.SAN, pos, status)
		res.PGN = &rec
	case opts.Headers != nil:
		rec := NewPgnRecord(*opts.Headers).Append(res.SAN, pos, status)
		res.PGN = &rec
	}
	return res
}

// matchGenerated finds the generated move for candidate. Pawn moves onto the
// last rank are matched geometrically first so a missing or bad promotion
// piece is reported as such.
func matchGenerated(pos Position, pc Piece, candidate Move) (Move, ValidationResult, bool) {
	generated := pos.pieceMoves(candidate.From)

	if pc.Type == Pawn && candidate.To.Valid() && candidate.To.Rank() == lastRank(pc.Color) {
		reachable := false
		for _, g := range generated {
			if g.From == candidate.From && g.To == candidate.To {
				reachable = true
				break
			}
		}
		if !reachable {
			return Move{}, reject(candidate, NotPseudoLegal, ""), false
		}
		if candidate.Promotion == NoPieceType {
			return Move{}, reject(candidate, PromotionMissing, "pawn reaches the last rank"), false
		}
		if !candidate.Promotion.IsPromotion() {
			return Move{}, reject(candidate, PromotionInvalid, fmt.Sprintf("cannot promote to %s", candidate.Promotion)), false
		}
	}

	for _, g := range generated {
		if sameMove(g, candidate) {
			return g, ValidationResult{}, true
		}
	}

	switch {
	case pc.Type == King && isCastleShape(candidate, pc.Color):
		return Move{}, reject(candidate, BadCastle, "castling right not held or path blocked"), false
	case pc.Type == Pawn && candidate.IsEnPassant():
		return Move{}, reject(candidate, BadEnPassant, "no en passant capture available"), false
	}
	return Move{}, reject(candidate, NotPseudoLegal, ""), false
}

func isCastleShape(m Move, color Color) bool {
	rank := homeRank(color)
	if m.From.File() != 4 || m.From.Rank() != rank || m.To.Rank() != rank {
		return false
	}
	return m.To.File() == 2 || m.To.File() == 6
}

// Play validates and applies a move, returning the new position and SAN.
func (p Position) Play(m Move) (Position, string, error) {
	res := ValidateMove(p, m, ValidateOptions{})
	if !res.Legal {
		return p, "", res.Err()
	}
	return res.Next, res.SAN, nil
}
