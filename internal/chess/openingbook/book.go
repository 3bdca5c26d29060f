// Package openingbook plays moves from a Polyglot book and names openings
// by ECO code.
package openingbook

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/chess-arena/internal/chess"
)

type Result struct {
	Move   chess.Move
	Weight uint16
}

// Book wraps a loaded Polyglot book. Lookups are safe for concurrent use.
type Book struct {
	book *chesslib.PolyglotBook
}

func LoadFromPath(bookPath string) (*Book, error) {
	if strings.TrimSpace(bookPath) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	file, err := os.Open(bookPath)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", bookPath, err)
	}
	defer file.Close()
	return Load(file)
}

func Load(r io.Reader) (*Book, error) {
	book, err := chesslib.LoadFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book: %w", err)
	}
	return &Book{book: book}, nil
}

// Lookup returns the heaviest book move that is legal in pos. ok is false
// when the position is not in the book.
func (b *Book) Lookup(pos chess.Position) (Result, bool, error) {
	if b == nil || b.book == nil {
		return Result{}, false, nil
	}
	hasher := chesslib.NewZobristHasher()
	hashStr, err := hasher.HashPosition(pos.FEN())
	if err != nil {
		return Result{}, false, fmt.Errorf("compute polyglot hash: %w", err)
	}
	entries := b.book.FindMoves(chesslib.ZobristHashToUint64(hashStr))

	var (
		best  Result
		found bool
	)
	for _, entry := range entries {
		if found && entry.Weight <= best.Weight {
			continue
		}
		pm := chesslib.DecodeMove(entry.Move).ToMove()
		m, err := chess.ParseUCI(pm.String())
		if err != nil {
			continue
		}
		m = kingTakesRook(pos, m)
		res := chess.ValidateMove(pos, m, chess.ValidateOptions{})
		if !res.Legal {
			continue
		}
		best, found = Result{Move: res.Move, Weight: entry.Weight}, true
	}
	return best, found, nil
}

// kingTakesRook rewrites Polyglot's e1h1-style castling to the king's
// destination square.
func kingTakesRook(pos chess.Position, m chess.Move) chess.Move {
	pc := pos.PieceAt(m.From)
	if pc.Type != chess.King || m.From.Rank() != m.To.Rank() {
		return m
	}
	target := pos.PieceAt(m.To)
	if target.Type != chess.Rook || target.Color != pc.Color {
		return m
	}
	file := 6
	if m.To.File() < m.From.File() {
		file = 2
	}
	if sq, ok := chess.SquareAt(file, m.From.Rank()); ok {
		m.To = sq
	}
	return m
}

type Opening struct {
	Code  string `json:"eco"`
	Title string `json:"title"`
}

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// Classify names the deepest ECO opening reached by moves, which are played
// from the standard starting position.
func Classify(moves []chess.Move) (Opening, bool) {
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })

	game := chesslib.NewGame()
	for _, m := range moves {
		if err := game.PushNotationMove(m.UCI(), chesslib.UCINotation{}, nil); err != nil {
			break
		}
	}
	eco := ecoBook.Find(game.Moves())
	if eco == nil {
		return Opening{}, false
	}
	return Opening{Code: eco.Code(), Title: eco.Title()}, true
}
