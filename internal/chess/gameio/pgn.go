package gameio

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/park285/chess-arena/internal/chess"
)

var (
	braceComment = regexp.MustCompile(`\{[^}]*\}`)
	lineComment  = regexp.MustCompile(`;[^\n]*`)
	tagLine      = regexp.MustCompile(`^\[(\w+)\s+"(.*)"\]$`)
	moveNumber   = regexp.MustCompile(`^\d+\.+`)
)

// ExportPGN renders sans as PGN text with headers taken from metadata.
// Moves are numbered from 1 with white first.
func ExportPGN(sans []string, opts ExportOptions) (string, error) {
	if err := validateSANs(sans); err != nil {
		return "", err
	}
	if err := validateMetadata(opts.Metadata); err != nil {
		return "", err
	}
	rec := chess.NewPgnRecord(headersFor(opts.Metadata))
	rec.Moves = sanPairs(sans)
	return rec.String(), nil
}

func sanPairs(sans []string) []chess.PgnMove {
	moves := make([]chess.PgnMove, 0, (len(sans)+1)/2)
	for i, san := range sans {
		if i%2 == 0 {
			moves = append(moves, chess.PgnMove{Fullmove: i/2 + 1, White: san})
			continue
		}
		moves[len(moves)-1].Black = san
	}
	return moves
}

type ParsedPGN struct {
	Tags       map[string]string
	SANs       []string
	Metadata   Metadata
	InitialFEN string
}

// ParsePGN reads a single game. Comments are stripped, tags are read up to
// the first blank line, and movetext stops at the result token.
func ParsePGN(text string) (ParsedPGN, error) {
	cleaned := braceComment.ReplaceAllString(text, "")
	cleaned = lineComment.ReplaceAllString(cleaned, "")
	lines := strings.Split(strings.ReplaceAll(cleaned, "\r\n", "\n"), "\n")

	tags := make(map[string]string)
	var movetext []string
	inMoves := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inMoves && strings.HasPrefix(trimmed, "[") {
			if m := tagLine.FindStringSubmatch(trimmed); m != nil {
				tags[m[1]] = m[2]
			}
			continue
		}
		if !inMoves && trimmed == "" {
			inMoves = true
			continue
		}
		if !inMoves {
			// Movetext without a separating blank line.
			inMoves = true
		}
		movetext = append(movetext, trimmed)
	}

	body := strings.TrimSpace(strings.Join(movetext, " "))
	if body == "" {
		return ParsedPGN{}, newError(CodeParseError, nil, "no moves found in PGN")
	}

	var sans []string
	for _, tok := range strings.Fields(body) {
		if chess.IsResultToken(tok) {
			break
		}
		if loc := moveNumber.FindStringIndex(tok); loc != nil {
			// "1.e4" carries the move after the number.
			tok = tok[loc[1]:]
			if tok == "" {
				continue
			}
		}
		sans = append(sans, tok)
	}

	return ParsedPGN{
		Tags: tags,
		SANs: sans,
		Metadata: Metadata{
			ModelWhite: tags["WhiteModel"],
			ModelBlack: tags["BlackModel"],
			Result:     tags["Result"],
			StartTime:  pgnDateToISO(tags["Date"]),
		},
		InitialFEN: tags["FEN"],
	}, nil
}

// pgnDateToISO converts YYYY.MM.DD to an RFC 3339 UTC midnight, or "".
func pgnDateToISO(date string) string {
	parts := strings.Split(date, ".")
	if len(parts) != 3 {
		return ""
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return ""
		}
		nums[i] = n
	}
	t := time.Date(nums[0], time.Month(nums[1]), nums[2], 0, 0, 0, 0, time.UTC)
	return t.Format("2006-01-02T15:04:05.000Z")
}

// ImportPGN parses and replays a PGN game.
func ImportPGN(text string) (ImportResult, error) {
	parsed, err := ParsePGN(text)
	if err != nil {
		return ImportResult{}, err
	}
	meta := parsed.Metadata
	if !chess.IsResultToken(meta.Result) {
		meta.Result = ""
	}
	initial, err := initialPosition(parsed.InitialFEN)
	if err != nil {
		return ImportResult{}, err
	}
	pos, rec, err := replaySANs(initial, parsed.SANs, &meta)
	if err != nil {
		return ImportResult{}, err
	}
	if tags := parsed.Tags; tags != nil {
		rec.Headers.Event = firstNonEmpty(tags["Event"], rec.Headers.Event)
		rec.Headers.Site = firstNonEmpty(tags["Site"], rec.Headers.Site)
		rec.Headers.Round = firstNonEmpty(tags["Round"], rec.Headers.Round)
		rec.Headers.White = firstNonEmpty(tags["White"], rec.Headers.White)
		rec.Headers.Black = firstNonEmpty(tags["Black"], rec.Headers.Black)
	}
	return ImportResult{
		Position: pos,
		PgnMoves: parsed.SANs,
		Metadata: &meta,
		Record:   rec,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
