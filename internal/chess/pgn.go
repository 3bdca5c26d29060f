package chess

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	ResultOngoing  = "*"
	ResultWhiteWin = "1-0"
	ResultBlackWin = "0-1"
	ResultDraw     = "1/2-1/2"
)

// IsResultToken reports whether s is one of the four PGN game results.
func IsResultToken(s string) bool {
	switch s {
	case ResultOngoing, ResultWhiteWin, ResultBlackWin, ResultDraw:
		return true
	}
	return false
}

// ResultFor maps a finished status to a PGN result token.
func ResultFor(status GameStatus) string {
	if !status.GameOver {
		return ResultOngoing
	}
	if status.Reason == Checkmate && status.HasWinner {
		if status.Winner == White {
			return ResultWhiteWin
		}
		return ResultBlackWin
	}
	return ResultDraw
}

type PgnHeaders struct {
	Event      string
	Site       string
	Date       string
	Round      string
	White      string
	Black      string
	Result     string
	WhiteModel string
	BlackModel string
}

// PgnDate formats t as YYYY.MM.DD.
func PgnDate(t time.Time) string {
	return t.Format("2006.01.02")
}

// WithDefaults fills empty seven-tag fields; the model tags stay optional.
func (h PgnHeaders) WithDefaults(now time.Time) PgnHeaders {
	def := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	def(&h.Event, "AI Match")
	def(&h.Site, "?")
	def(&h.Date, PgnDate(now))
	def(&h.Round, "-")
	def(&h.White, "White")
	def(&h.Black, "Black")
	def(&h.Result, ResultOngoing)
	return h
}

func (h PgnHeaders) pairs() [][2]string {
	return [][2]string{
		{"Event", h.Event},
		{"Site", h.Site},
		{"Date", h.Date},
		{"Round", h.Round},
		{"White", h.White},
		{"Black", h.Black},
		{"Result", h.Result},
		{"WhiteModel", h.WhiteModel},
		{"BlackModel", h.BlackModel},
	}
}

type PgnMove struct {
	Fullmove int    `json:"fullmove"`
	White    string `json:"white,omitempty"`
	Black    string `json:"black,omitempty"`
}

// PgnRecord accumulates a game one ply at a time. Append returns a new
// record and leaves the receiver untouched.
type PgnRecord struct {
	Headers PgnHeaders
	Moves   []PgnMove
	Result  string
}

func NewPgnRecord(h PgnHeaders) PgnRecord {
	h = h.WithDefaults(time.Now())
	return PgnRecord{Headers: h, Result: h.Result}
}

// Append records san, played from before, and updates the result when
// status is terminal.
func (r PgnRecord) Append(san string, before Position, status GameStatus) PgnRecord {
	moves := make([]PgnMove, len(r.Moves), len(r.Moves)+1)
	copy(moves, r.Moves)

	full := before.FullmoveNumber
	if before.Turn == White {
		moves = append(moves, PgnMove{Fullmove: full, White: san})
	} else if n := len(moves); n > 0 && moves[n-1].Fullmove == full && moves[n-1].Black == "" {
		moves[n-1].Black = san
	} else {
		moves = append(moves, PgnMove{Fullmove: full, Black: san})
	}

	r.Moves = moves
	if status.GameOver {
		r.Result = ResultFor(status)
	}
	return r
}

// WithResult returns a copy whose result is forced, e.g. after a timeout.
func (r PgnRecord) WithResult(result string) PgnRecord {
	r.Moves = append([]PgnMove(nil), r.Moves...)
	r.Result = result
	return r
}

// SANs flattens the movetext into ply order.
func (r PgnRecord) SANs() []string {
	out := make([]string, 0, len(r.Moves)*2)
	for _, m := range r.Moves {
		if m.White != "" {
			out = append(out, m.White)
		}
		if m.Black != "" {
			out = append(out, m.Black)
		}
	}
	return out
}

// Movetext renders the numbered move list followed by the result token.
func (r PgnRecord) Movetext() string {
	parts := make([]string, 0, len(r.Moves)+1)
	for _, m := range r.Moves {
		num := strconv.Itoa(m.Fullmove)
		switch {
		case m.White != "" && m.Black != "":
			parts = append(parts, num+". "+m.White+" "+m.Black)
		case m.White != "":
			parts = append(parts, num+". "+m.White)
		case m.Black != "":
			parts = append(parts, num+"... "+m.Black)
		}
	}
	result := r.Result
	if result == "" {
		result = ResultOngoing
	}
	parts = append(parts, result)
	return strings.Join(parts, " ")
}

// String renders headers in fixed order, a blank line and the movetext.
// The Result tag always mirrors the record's result.
func (r PgnRecord) String() string {
	h := r.Headers
	if r.Result != "" {
		h.Result = r.Result
	}
	var b strings.Builder
	for _, kv := range h.pairs() {
		if kv[1] == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s %q]\n", kv[0], kv[1])
	}
	b.WriteByte('\n')
	b.WriteString(r.Movetext())
	return b.String()
}
