package session

import (
	"time"

	"github.com/park285/cheese-frames/internal/rules"
	"go.uber.org/zap"
)

// Record is the persisted form of a session.
type Record struct {
	ID             string            `json:"id"`
	Seq            int64             `json:"seq"`
	Players        map[Side]*Binding `json:"players"`
	Turn           Side              `json:"turn"`
	LastMove       *LastMove         `json:"lastMove,omitempty"`
	Status         Status            `json:"status"`
	MoveHistory    []string          `json:"moveHistory"`
	MoveHistoryUCI []string          `json:"moveHistoryUci"`
	Result         string            `json:"result,omitempty"`
	Termination    string            `json:"termination,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	Position       string            `json:"position"`
}

// ToRecord serializes the externally visible state of s.
func ToRecord(s *Session, oracle rules.Oracle) Record {
	c := s.Clone()
	if c.History == nil {
		c.History = []string{}
	}
	if c.HistoryUCI == nil {
		c.HistoryUCI = []string{}
	}
	return Record{
		ID:             c.ID,
		Seq:            c.Seq,
		Players:        c.Players,
		Turn:           c.Turn,
		LastMove:       c.LastMove,
		Status:         c.Status,
		MoveHistory:    c.History,
		MoveHistoryUCI: c.HistoryUCI,
		Result:         c.Result,
		Termination:    c.Termination,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		Position:       oracle.Serialize(c.Position),
	}
}

// FromRecord rebuilds a session. The move list is replayed first so repetition
// history survives; when it does not reproduce the stored position the stored
// position wins; when that is unreadable the game degrades to the initial
// position with its history cleared. The second return value reports degradation.
func FromRecord(rec Record, oracle rules.Oracle, logger *zap.Logger) (*Session, bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		ID:          rec.ID,
		Seq:         rec.Seq,
		Status:      rec.Status,
		Players:     map[Side]*Binding{},
		History:     append([]string(nil), rec.MoveHistory...),
		HistoryUCI:  append([]string(nil), rec.MoveHistoryUCI...),
		Result:      rec.Result,
		Termination: rec.Termination,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	for side, b := range rec.Players {
		if b == nil || !side.Valid() {
			continue
		}
		cp := *b
		if cp.Provenance == "" {
			if cp.Token != "" {
				cp.Provenance = ProvenanceToken
			} else {
				cp.Provenance = ProvenanceIdentity
			}
		}
		s.Players[side] = &cp
	}
	if rec.LastMove != nil {
		lm := *rec.LastMove
		s.LastMove = &lm
	}

	if len(rec.MoveHistoryUCI) > 0 {
		if pos, err := oracle.Replay(rec.MoveHistoryUCI); err == nil && oracle.Serialize(pos) == rec.Position {
			s.SetPosition(pos)
			defaultStatus(s)
			return s, false
		}
	}
	pos, err := oracle.Load(rec.Position)
	if err == nil {
		s.SetPosition(pos)
		defaultStatus(s)
		return s, false
	}
	logger.Warn("session_restore_degraded",
		zap.String("session_id", rec.ID),
		zap.String("position", rec.Position),
		zap.Error(err),
	)

	s.ClearGame(oracle.Initial())
	s.Status = StatusWaiting
	if s.BothBound() {
		s.Status = StatusActive
	}
	return s, true
}

// defaultStatus fills a status missing from older records.
func defaultStatus(s *Session) {
	if s.Status == "" {
		s.Status = StatusWaiting
	}
}
