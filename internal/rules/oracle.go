package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Errors
var (
	ErrIllegalMove     = errf("illegal move")
	ErrInvalidSquare   = errf("malformed square")
	ErrInvalidFormat   = errf("invalid position format")
	ErrInvalidPosition = errf("position handle is empty")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// Outcome is the oracle's answer to an accepted move.
type Outcome struct {
	Position   *Position
	SAN        string
	UCI        string
	SideToMove string
	Check      bool
	Checkmate  bool
	Draw       bool
	Method     string
}

// Status describes a position without applying anything to it.
type Status struct {
	SideToMove string
	Check      bool
	Checkmate  bool
	Draw       bool
	Method     string
}

// Terminal reports whether no further move can be played.
func (s Status) Terminal() bool { return s.Checkmate || s.Draw }

// Oracle is the rules boundary used by the session core. Positions are immutable:
// Apply never touches the position it receives.
type Oracle interface {
	Initial() *Position
	Apply(pos *Position, from, to, promotion string) (*Outcome, error)
	Load(fen string) (*Position, error)
	Serialize(pos *Position) string
	ValidTargets(pos *Position, square string) ([]string, error)
	Status(pos *Position) Status
	Replay(uci []string) (*Position, error)
}

// Engine implements Oracle on top of corentings/chess.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

func (e *Engine) Initial() *Position {
	return &Position{game: nchess.NewGame()}
}

func (e *Engine) Apply(pos *Position, from, to, promotion string) (*Outcome, error) {
	if pos == nil || pos.game == nil {
		return nil, ErrInvalidPosition
	}
	src, err := ParseSquare(from)
	if err != nil {
		return nil, fmt.Errorf("%w: from %q", ErrIllegalMove, from)
	}
	dst, err := ParseSquare(to)
	if err != nil {
		return nil, fmt.Errorf("%w: to %q", ErrIllegalMove, to)
	}
	promo, err := normalizePromotion(promotion)
	if err != nil {
		return nil, err
	}

	game := pos.game.Clone()
	before := game.Position()
	piece := before.Board().Piece(src)
	if piece == nchess.NoPiece {
		return nil, fmt.Errorf("%w: no piece on %s", ErrIllegalMove, src.String())
	}
	if promo == "" && piece.Type() == nchess.Pawn && (dst.Rank() == nchess.Rank8 || dst.Rank() == nchess.Rank1) {
		promo = "q"
	}

	uci := src.String() + dst.String() + promo
	mv, err := nchess.UCINotation{}.Decode(before, uci)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	if err := game.Move(mv, nil); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}

	san := nchess.AlgebraicNotation{}.Encode(before, mv)
	next := &Position{game: game}
	st := next.status()
	return &Outcome{
		Position:   next,
		SAN:        san,
		UCI:        uci,
		SideToMove: st.SideToMove,
		Check:      st.Check || strings.HasSuffix(san, "+") || strings.HasSuffix(san, "#"),
		Checkmate:  st.Checkmate,
		Draw:       st.Draw,
		Method:     st.Method,
	}, nil
}

func (e *Engine) Load(fen string) (*Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, ErrInvalidFormat
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return &Position{game: nchess.NewGame(opt)}, nil
}

func (e *Engine) Serialize(pos *Position) string {
	if pos == nil || pos.game == nil {
		return ""
	}
	return pos.game.FEN()
}

// ValidTargets lists destination squares reachable from square, sorted by board order.
func (e *Engine) ValidTargets(pos *Position, square string) ([]string, error) {
	if pos == nil || pos.game == nil {
		return nil, ErrInvalidPosition
	}
	src, err := ParseSquare(square)
	if err != nil {
		return nil, err
	}
	seen := make(map[nchess.Square]bool)
	for _, mv := range pos.game.ValidMoves() {
		if mv.S1() != src {
			continue
		}
		seen[mv.S2()] = true
	}
	out := make([]string, 0, len(seen))
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		if seen[sq] {
			out = append(out, sq.String())
		}
	}
	return out, nil
}

func (e *Engine) Status(pos *Position) Status {
	if pos == nil || pos.game == nil {
		return Status{}
	}
	return pos.status()
}

// Replay rebuilds a position from the initial setup by applying UCI moves in order.
func (e *Engine) Replay(uci []string) (*Position, error) {
	game := nchess.NewGame()
	for _, mv := range uci {
		if err := game.PushNotationMove(strings.ToLower(strings.TrimSpace(mv)), nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay %s: %w", mv, err)
		}
	}
	return &Position{game: game}, nil
}

// ParseSquare accepts algebraic squares such as "e4" (case-insensitive).
func ParseSquare(s string) (nchess.Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), nil
}

func normalizePromotion(p string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(p)); v {
	case "":
		return "", nil
	case "q", "queen":
		return "q", nil
	case "r", "rook":
		return "r", nil
	case "b", "bishop":
		return "b", nil
	case "n", "knight":
		return "n", nil
	default:
		return "", fmt.Errorf("%w: promotion %q", ErrIllegalMove, p)
	}
}
