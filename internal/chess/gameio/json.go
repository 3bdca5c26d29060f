package gameio

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/park285/chess-arena/internal/chess"
)

const ExportVersion = 1

type Metadata struct {
	ModelWhite string `json:"modelWhite,omitempty"`
	ModelBlack string `json:"modelBlack,omitempty"`
	StartTime  string `json:"startTime,omitempty" validate:"omitempty,isotime"`
	Result     string `json:"result,omitempty" validate:"omitempty,oneof=* 1-0 0-1 1/2-1/2"`
}

// MoveRecord is the wire form of a chess.Move.
type MoveRecord struct {
	From         string `json:"from" validate:"required,square"`
	To           string `json:"to" validate:"required,square"`
	Promotion    string `json:"promotion,omitempty" validate:"omitempty,oneof=q r b n"`
	IsCapture    bool   `json:"isCapture,omitempty"`
	IsCastle     bool   `json:"isCastle,omitempty"`
	IsEnPassant  bool   `json:"isEnPassant,omitempty"`
	IsDoublePush bool   `json:"isDoublePush,omitempty"`
}

func NewMoveRecord(m chess.Move) MoveRecord {
	r := MoveRecord{
		From:         m.From.String(),
		To:           m.To.String(),
		IsCapture:    m.IsCapture(),
		IsCastle:     m.IsCastle(),
		IsEnPassant:  m.IsEnPassant(),
		IsDoublePush: m.IsDoublePush(),
	}
	if m.Promotion.IsPromotion() {
		r.Promotion = strings.ToLower(m.Promotion.Letter())
	}
	return r
}

func (r MoveRecord) Move() (chess.Move, error) {
	from, err := chess.ParseSquare(r.From)
	if err != nil {
		return chess.Move{}, err
	}
	to, err := chess.ParseSquare(r.To)
	if err != nil {
		return chess.Move{}, err
	}
	m := chess.Move{From: from, To: to}
	if r.Promotion != "" {
		p, ok := chess.ParsePromotion(r.Promotion)
		if !ok {
			return chess.Move{}, newError(CodeSchemaInvalid, nil, "invalid promotion %q", r.Promotion)
		}
		m.Promotion = p
	}
	if r.IsCapture {
		m.Flags |= chess.FlagCapture
	}
	if r.IsCastle {
		m.Flags |= chess.FlagCastle
	}
	if r.IsEnPassant {
		m.Flags |= chess.FlagEnPassant
	}
	if r.IsDoublePush {
		m.Flags |= chess.FlagDoublePush
	}
	return m, nil
}

// GameExport is the versioned JSON payload exchanged with persistence.
type GameExport struct {
	Version  int          `json:"version"`
	FinalFEN string       `json:"finalFen"`
	PgnMoves []string     `json:"pgnMoves" validate:"required,dive,nonblank"`
	Moves    []MoveRecord `json:"moves,omitempty" validate:"omitempty,dive"`
	Metadata *Metadata    `json:"metadata,omitempty"`
}

type ExportOptions struct {
	Metadata *Metadata
	Moves    []chess.Move
}

type ImportOptions struct {
	// InitialFEN replaces the standard starting position.
	InitialFEN string
	// ExpectFinalFEN overrides the payload's finalFen for the final check.
	ExpectFinalFEN string
}

type ImportResult struct {
	Position chess.Position
	PgnMoves []string
	Metadata *Metadata
	Record   chess.PgnRecord
}

func validateMetadata(meta *Metadata) error {
	if meta == nil {
		return nil
	}
	if err := validate.Struct(meta); err != nil {
		return schemaError(err)
	}
	return nil
}

// validateSANs rejects blank entries. A nil history is a game with no moves.
func validateSANs(sans []string) error {
	for i, san := range sans {
		if strings.TrimSpace(san) == "" {
			return newError(CodeSchemaInvalid, nil, "pgnMoves[%d] must be a non-empty SAN string", i)
		}
	}
	return nil
}

// ExportJSON builds the payload for pos, reached by sans.
func ExportJSON(pos chess.Position, sans []string, opts ExportOptions) (GameExport, error) {
	if err := validateSANs(sans); err != nil {
		return GameExport{}, err
	}
	if err := validateMetadata(opts.Metadata); err != nil {
		return GameExport{}, err
	}
	out := GameExport{
		Version:  ExportVersion,
		FinalFEN: pos.FEN(),
		PgnMoves: append([]string{}, sans...),
	}
	if len(opts.Moves) > 0 {
		out.Moves = make([]MoveRecord, 0, len(opts.Moves))
		for _, m := range opts.Moves {
			out.Moves = append(out.Moves, NewMoveRecord(m))
		}
	}
	if opts.Metadata != nil {
		meta := *opts.Metadata
		out.Metadata = &meta
	}
	return out, nil
}

// MarshalExport is ExportJSON followed by encoding.
func MarshalExport(pos chess.Position, sans []string, opts ExportOptions) ([]byte, error) {
	payload, err := ExportJSON(pos, sans, opts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}

// UnmarshalImport decodes raw JSON and imports it. The version is checked
// before the rest of the shape.
func UnmarshalImport(data []byte, opts ImportOptions) (ImportResult, error) {
	var probe struct {
		Version json.RawMessage `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ImportResult{}, newError(CodeParseError, err, "invalid json")
	}
	if strings.TrimSpace(string(probe.Version)) != "1" {
		return ImportResult{}, newError(CodeInvalidVersion, nil, "unsupported export version %s", string(probe.Version))
	}

	var payload GameExport
	if err := json.Unmarshal(data, &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return ImportResult{}, newError(CodeSchemaInvalid, err, "field %s has the wrong type", typeErr.Field)
		}
		return ImportResult{}, newError(CodeParseError, err, "invalid json")
	}
	return ImportJSON(payload, opts)
}

// ImportJSON replays payload.PgnMoves from the initial position and checks
// the resulting FEN.
func ImportJSON(payload GameExport, opts ImportOptions) (ImportResult, error) {
	if payload.Version != ExportVersion {
		return ImportResult{}, newError(CodeInvalidVersion, nil, "unsupported export version %d", payload.Version)
	}
	if err := validate.Struct(payload); err != nil {
		return ImportResult{}, schemaError(err)
	}

	initial, err := initialPosition(opts.InitialFEN)
	if err != nil {
		return ImportResult{}, err
	}
	pos, rec, err := replaySANs(initial, payload.PgnMoves, payload.Metadata)
	if err != nil {
		return ImportResult{}, err
	}

	expected := opts.ExpectFinalFEN
	if expected == "" {
		expected = payload.FinalFEN
	}
	if actual := pos.FEN(); expected != "" && actual != expected {
		return ImportResult{}, newError(CodeFinalFENMismatch, nil, "expected %q, got %q", expected, actual)
	}

	res := ImportResult{
		Position: pos,
		PgnMoves: append([]string{}, payload.PgnMoves...),
		Record:   rec,
	}
	if payload.Metadata != nil {
		meta := *payload.Metadata
		res.Metadata = &meta
	}
	return res, nil
}

func initialPosition(fen string) (chess.Position, error) {
	if strings.TrimSpace(fen) == "" {
		return chess.StartingPosition(), nil
	}
	pos, err := chess.ParseFEN(fen)
	if err != nil {
		return chess.Position{}, newError(CodeParseError, err, "initial fen")
	}
	return pos, nil
}

// headersFor maps export metadata onto PGN headers.
func headersFor(meta *Metadata) chess.PgnHeaders {
	var h chess.PgnHeaders
	if meta == nil {
		return h
	}
	if t, ok := ParseISOTime(meta.StartTime); ok {
		h.Date = chess.PgnDate(t)
	}
	h.Result = meta.Result
	h.WhiteModel = meta.ModelWhite
	h.BlackModel = meta.ModelBlack
	return h
}

// applySAN resolves san against pos and plays it, appending to rec.
func applySAN(pos chess.Position, san string, rec chess.PgnRecord) (chess.ValidationResult, error) {
	m, err := pos.MoveFromSAN(san)
	if err != nil {
		return chess.ValidationResult{}, newError(CodeIllegalMove, err, "illegal or unrecognized SAN %q", san)
	}
	res := chess.ValidateMove(pos, m, chess.ValidateOptions{PGN: &rec})
	if !res.Legal {
		return chess.ValidationResult{}, newError(CodeIllegalMove, res.Err(), "illegal or unrecognized SAN %q", san)
	}
	return res, nil
}

func replaySANs(initial chess.Position, sans []string, meta *Metadata) (chess.Position, chess.PgnRecord, error) {
	rec := chess.NewPgnRecord(headersFor(meta))
	pos := initial
	for _, san := range sans {
		res, err := applySAN(pos, san, rec)
		if err != nil {
			return chess.Position{}, chess.PgnRecord{}, err
		}
		pos, rec = res.Next, *res.PGN
	}
	return pos, rec, nil
}
