package chess

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedFEN = errors.New("malformed fen")

type MalformedFENError struct {
	Field  string
	Reason string
}

func (e *MalformedFENError) Error() string {
	return fmt.Sprintf("malformed fen: %s: %s", e.Field, e.Reason)
}

func (e *MalformedFENError) Unwrap() error { return ErrMalformedFEN }

func malformed(field, format string, args ...any) error {
	return &MalformedFENError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ParseFEN parses the six FEN fields. Extra trailing fields are ignored.
// Every placement must hold exactly one king per colour.
func ParseFEN(text string) (Position, error) {
	fields := strings.Fields(text)
	if len(fields) < 6 {
		return Position{}, malformed("fields", "expected 6 fields, got %d", len(fields))
	}

	pos := Position{EnPassant: NoSquare}
	if err := parsePlacement(&pos, fields[0]); err != nil {
		return Position{}, err
	}

	switch fields[1] {
	case "w":
		pos.Turn = White
	case "b":
		pos.Turn = Black
	default:
		return Position{}, malformed("active color", "unexpected %q", fields[1])
	}

	castling, err := parseCastling(fields[2])
	if err != nil {
		return Position{}, err
	}
	pos.Castling = castling

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return Position{}, malformed("en passant", "invalid square %q", fields[3])
		}
		pos.EnPassant = sq
	}

	half, err := strconv.Atoi(fields[4])
	if err != nil || half < 0 {
		return Position{}, malformed("halfmove", "not a non-negative integer: %q", fields[4])
	}
	full, err := strconv.Atoi(fields[5])
	if err != nil || full < 0 {
		return Position{}, malformed("fullmove", "not a non-negative integer: %q", fields[5])
	}
	pos.HalfmoveClock = half
	pos.FullmoveNumber = full
	return pos, nil
}

func parsePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return malformed("placement", "expected 8 ranks, got %d", len(ranks))
	}
	var kings [2]int
	for i, rankText := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(rankText); j++ {
			c := rankText[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				if file > 8 {
					return malformed("placement", "rank %q overflows 8 files", rankText)
				}
				continue
			}
			pc, ok := pieceFromSymbol(c)
			if !ok {
				return malformed("placement", "invalid piece symbol %q", string(c))
			}
			sq, ok := SquareAt(file, rank)
			if !ok {
				return malformed("placement", "rank %q overflows 8 files", rankText)
			}
			pos.board[sq] = pc
			if pc.Type == King {
				kings[pc.Color]++
			}
			file++
		}
		if file != 8 {
			return malformed("placement", "rank %q has %d files", rankText, file)
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return malformed("placement", "expected one king per color, got %d white and %d black", kings[White], kings[Black])
	}
	return nil
}

func parseCastling(text string) (CastlingRights, error) {
	var c CastlingRights
	if text == "-" {
		return c, nil
	}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case 'K':
			c.WhiteKingSide = true
		case 'Q':
			c.WhiteQueenSide = true
		case 'k':
			c.BlackKingSide = true
		case 'q':
			c.BlackQueenSide = true
		default:
			return CastlingRights{}, malformed("castling", "unexpected %q", string(text[i]))
		}
	}
	return c, nil
}

// FEN serializes p. ParseFEN(p.FEN()) == p for every position this package produces.
func (p Position) FEN() string {
	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.board[rank*8+file]
			if pc.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteByte(byte('0' + empty))
				empty = 0
			}
			b.WriteByte(pc.Symbol())
		}
		if empty > 0 {
			b.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			b.WriteByte('/')
		}
	}
	b.WriteByte(' ')
	b.WriteString(p.Turn.FENChar())
	b.WriteByte(' ')
	b.WriteString(p.Castling.String())
	b.WriteByte(' ')
	b.WriteString(p.EnPassant.String())
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(p.HalfmoveClock))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(p.FullmoveNumber))
	return b.String()
}

// PlacementFEN returns only the piece-placement field.
func (p Position) PlacementFEN() string {
	fen := p.FEN()
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		return fen[:i]
	}
	return fen
}
