package gameio

import (
	"github.com/park285/chess-arena/internal/chess"
)

type Snapshot struct {
	// Index 0 is the initial position; i is the position after i plies.
	Index    int
	Position chess.Position
	FEN      string
	SAN      string
	PGN      chess.PgnRecord
}

// Replay steps through a SAN list. Snapshots are computed on first visit
// and cached; a Replay is not safe for concurrent use.
type Replay struct {
	sans      []string
	snapshots []Snapshot
	cursor    int
}

type ReplayOptions struct {
	InitialFEN string
	Metadata   *Metadata
}

func NewReplay(sans []string, opts ReplayOptions) (*Replay, error) {
	if err := validateSANs(sans); err != nil {
		return nil, err
	}
	initial, err := initialPosition(opts.InitialFEN)
	if err != nil {
		return nil, err
	}
	first := Snapshot{
		Index:    0,
		Position: initial,
		FEN:      initial.FEN(),
		PGN:      chess.NewPgnRecord(headersFor(opts.Metadata)),
	}
	return &Replay{
		sans:      append([]string{}, sans...),
		snapshots: []Snapshot{first},
	}, nil
}

// Len is the number of plies.
func (r *Replay) Len() int { return len(r.sans) }

func (r *Replay) Index() int { return r.cursor }

func (r *Replay) Current() Snapshot { return r.snapshots[r.cursor] }

func (r *Replay) Next() (Snapshot, error) {
	return r.JumpTo(r.cursor + 1)
}

func (r *Replay) Prev() (Snapshot, error) {
	if r.cursor == 0 {
		return Snapshot{}, newError(CodeOutOfBounds, nil, "already at the beginning of the replay")
	}
	r.cursor--
	return r.Current(), nil
}

// JumpTo moves the cursor to index, computing any missing snapshots. On
// error the cursor is left where it was.
func (r *Replay) JumpTo(index int) (Snapshot, error) {
	if err := r.ensure(index); err != nil {
		return Snapshot{}, err
	}
	r.cursor = index
	return r.Current(), nil
}

func (r *Replay) Reset() Snapshot {
	r.cursor = 0
	return r.Current()
}

func (r *Replay) ensure(target int) error {
	if target < 0 || target > len(r.sans) {
		return newError(CodeOutOfBounds, nil, "replay index %d outside [0, %d]", target, len(r.sans))
	}
	for len(r.snapshots) <= target {
		prev := r.snapshots[len(r.snapshots)-1]
		san := r.sans[prev.Index]
		res, err := applySAN(prev.Position, san, prev.PGN)
		if err != nil {
			return err
		}
		r.snapshots = append(r.snapshots, Snapshot{
			Index:    prev.Index + 1,
			Position: res.Next,
			FEN:      res.Next.FEN(),
			SAN:      res.SAN,
			PGN:      *res.PGN,
		})
	}
	return nil
}
