package session

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/park285/cheese-frames/internal/rules"
)

// Side identifies a chess side.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// Sides lists both sides in seating order.
var Sides = [2]Side{White, Black}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// Valid reports whether s is one of the two sides.
func (s Side) Valid() bool { return s == White || s == Black }

// ParseSide accepts white/black and their one-letter forms.
func ParseSide(v string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return "", false
	}
}

// Status is the session lifecycle state.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Provenance records how a seat was taken.
type Provenance string

const (
	// ProvenanceToken seats were claimed through join/solo and carry a secret.
	ProvenanceToken Provenance = "token"
	// ProvenanceIdentity seats were asserted by the frame channel and carry none.
	ProvenanceIdentity Provenance = "identity"
)

// Binding is an occupied seat.
type Binding struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Token       string     `json:"token,omitempty"`
	Provenance  Provenance `json:"provenance"`
	JoinedAt    time.Time  `json:"joinedAt"`
}

// LastMove holds the endpoints of the previous move.
type LastMove struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Session is one game. Records handed out by the Store are committed snapshots
// and must be treated as read-only; mutate through Store.Update.
type Session struct {
	ID          string
	Seq         int64
	Position    *rules.Position
	Status      Status
	Turn        Side
	Players     map[Side]*Binding
	History     []string
	HistoryUCI  []string
	LastMove    *LastMove
	Result      string
	Termination string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Summary is the list() projection.
type Summary struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	Turn   Side   `json:"turn"`
	Moves  int    `json:"moves"`
}

// New returns a waiting session at pos.
func New(id string, pos *rules.Position, now time.Time) *Session {
	return &Session{
		ID:        id,
		Position:  pos,
		Status:    StatusWaiting,
		Turn:      sideOf(pos),
		Players:   map[Side]*Binding{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone copies everything a mutation may touch. Position handles are immutable
// and shared.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Players = make(map[Side]*Binding, len(s.Players))
	for side, b := range s.Players {
		if b == nil {
			continue
		}
		cp := *b
		c.Players[side] = &cp
	}
	c.History = append([]string(nil), s.History...)
	c.HistoryUCI = append([]string(nil), s.HistoryUCI...)
	if s.LastMove != nil {
		lm := *s.LastMove
		c.LastMove = &lm
	}
	return &c
}

// Player returns the binding on side, or nil.
func (s *Session) Player(side Side) *Binding {
	if s == nil || s.Players == nil {
		return nil
	}
	return s.Players[side]
}

// BothBound reports whether both seats are taken.
func (s *Session) BothBound() bool {
	return s.Player(White) != nil && s.Player(Black) != nil
}

// SetPosition commits pos and re-reads the side to move from it.
func (s *Session) SetPosition(pos *rules.Position) {
	s.Position = pos
	s.Turn = sideOf(pos)
}

// ClearGame drops history and result, keeping bindings.
func (s *Session) ClearGame(pos *rules.Position) {
	s.SetPosition(pos)
	s.History = nil
	s.HistoryUCI = nil
	s.LastMove = nil
	s.Result = ""
	s.Termination = ""
}

// Summary projects s for list().
func (s *Session) Summary() Summary {
	return Summary{ID: s.ID, Status: s.Status, Turn: s.Turn, Moves: len(s.History)}
}

func sideOf(pos *rules.Position) Side {
	if pos.SideToMove() == string(Black) {
		return Black
	}
	return White
}

// DisplayNameLimit bounds display names in runes.
var DisplayNameLimit = 24

// NormalizeName trims and collapses whitespace, falls back to def and bounds the
// result to DisplayNameLimit runes.
func NormalizeName(name, def string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		name = def
	}
	if name == "" {
		name = "Player"
	}
	limit := DisplayNameLimit
	if limit <= 1 || utf8.RuneCountInString(name) <= limit {
		return name
	}
	runes := []rune(name)
	return string(runes[:limit-1]) + "…"
}
