// Package turn drives the session lifecycle: waiting, active, finished, and the
// reset that starts over.
package turn

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-frames/internal/auth"
	"github.com/park285/cheese-frames/internal/rules"
	"github.com/park285/cheese-frames/internal/session"
)

// Errors
var (
	ErrGameNotActive = errf("game is not active")
	ErrNotYourTurn   = errf("not your turn")
	ErrIllegalMove   = errf("illegal move")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// Results in PGN notation.
const (
	ResultWhiteWins = "1-0"
	ResultBlackWins = "0-1"
	ResultDraw      = "1/2-1/2"
)

// Terminations
const (
	TerminationCheckmate   = "checkmate"
	TerminationResignation = "resignation"
	TerminationDraw        = "draw"
)

// MoveRequest is one attempted move. IdentityID is set by the frame channel;
// Token by the web path.
type MoveRequest struct {
	Token      string
	IdentityID string
	From       string
	To         string
	Promotion  string
}

// MoveResult digests a committed move.
type MoveResult struct {
	Side        session.Side
	SAN         string
	UCI         string
	From        string
	To          string
	Status      session.Status
	Turn        session.Side
	History     []string
	Check       bool
	Checkmate   bool
	Draw        bool
	Result      string
	Termination string
}

// Recompute applies the seat rule: both seats bound means active. Finished
// sessions stay finished until reset.
func Recompute(s *session.Session) {
	if s.Status == session.StatusFinished {
		return
	}
	if s.BothBound() {
		s.Status = session.StatusActive
		return
	}
	s.Status = session.StatusWaiting
}

// ApplyMove validates and commits one move on s. On error s is untouched.
func ApplyMove(s *session.Session, oracle rules.Oracle, req MoveRequest, now time.Time) (*MoveResult, error) {
	if s.Status != session.StatusActive {
		return nil, ErrGameNotActive
	}
	sides, err := auth.SidesFor(s, req.Token, req.IdentityID)
	if err != nil {
		return nil, err
	}
	mover := s.Turn
	if !contains(sides, mover) {
		return nil, ErrNotYourTurn
	}
	from := strings.ToLower(strings.TrimSpace(req.From))
	to := strings.ToLower(strings.TrimSpace(req.To))
	if owner := s.Position.ColorAt(from); owner != "" && session.Side(owner) != mover {
		return nil, ErrNotYourTurn
	}

	out, err := oracle.Apply(s.Position, from, to, req.Promotion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}

	s.SetPosition(out.Position)
	s.History = append(s.History, out.SAN)
	s.HistoryUCI = append(s.HistoryUCI, out.UCI)
	s.LastMove = &session.LastMove{From: from, To: to}
	s.UpdatedAt = now

	switch {
	case out.Checkmate:
		s.Status = session.StatusFinished
		s.Termination = TerminationCheckmate
		s.Result = winFor(mover)
	case out.Draw:
		s.Status = session.StatusFinished
		s.Result = ResultDraw
		s.Termination = TerminationDraw
		if out.Method != "" {
			s.Termination = out.Method
		}
	}

	return &MoveResult{
		Side:        mover,
		SAN:         out.SAN,
		UCI:         out.UCI,
		From:        from,
		To:          to,
		Status:      s.Status,
		Turn:        s.Turn,
		History:     append([]string(nil), s.History...),
		Check:       out.Check,
		Checkmate:   out.Checkmate,
		Draw:        out.Draw,
		Result:      s.Result,
		Termination: s.Termination,
	}, nil
}

// Resign ends an active game in favour of the opponent of the resigning side.
// A solo token holds both sides, in which case the side to move resigns.
func Resign(s *session.Session, sides []session.Side, now time.Time) (session.Side, error) {
	if s.Status != session.StatusActive {
		return "", ErrGameNotActive
	}
	if len(sides) == 0 {
		return "", ErrNotYourTurn
	}
	loser := sides[0]
	if len(sides) > 1 {
		loser = s.Turn
	}
	s.Status = session.StatusFinished
	s.Result = winFor(loser.Opponent())
	s.Termination = TerminationResignation
	s.UpdatedAt = now
	return loser, nil
}

// Reset starts a new game on s: fresh position, no seats, waiting.
func Reset(s *session.Session, oracle rules.Oracle, now time.Time) {
	s.ClearGame(oracle.Initial())
	s.Players = map[session.Side]*session.Binding{}
	s.Status = session.StatusWaiting
	s.UpdatedAt = now
}

func winFor(side session.Side) string {
	if side == session.White {
		return ResultWhiteWins
	}
	return ResultBlackWins
}

func contains(sides []session.Side, want session.Side) bool {
	for _, s := range sides {
		if s == want {
			return true
		}
	}
	return false
}
