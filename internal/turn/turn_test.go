package turn

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/park285/cheese-frames/internal/auth"
	"github.com/park285/cheese-frames/internal/rules"
	"github.com/park285/cheese-frames/internal/session"
)

type fixture struct {
	oracle *rules.Engine
	s      *session.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	e := rules.NewEngine()
	return &fixture{oracle: e, s: session.New("g1", e.Initial(), time.Now())}
}

func (f *fixture) move(req MoveRequest) (*MoveResult, error) {
	return ApplyMove(f.s, f.oracle, req, time.Now())
}

func (f *fixture) snapshot() (string, []string, session.Side) {
	return f.oracle.Serialize(f.s.Position), append([]string(nil), f.s.History...), f.s.Turn
}

func TestRecompute(t *testing.T) {
	f := newFixture(t)
	Recompute(f.s)
	if f.s.Status != session.StatusWaiting {
		t.Fatalf("expected waiting, got %s", f.s.Status)
	}
	_, _, _ = auth.IssueToken(f.s, auth.ChooseWhite, "Alice", time.Now())
	Recompute(f.s)
	if f.s.Status != session.StatusWaiting {
		t.Fatalf("one seat must stay waiting, got %s", f.s.Status)
	}
	_, _, _ = auth.IssueToken(f.s, auth.ChooseBlack, "Bob", time.Now())
	Recompute(f.s)
	if f.s.Status != session.StatusActive {
		t.Fatalf("expected active, got %s", f.s.Status)
	}
	f.s.Status = session.StatusFinished
	Recompute(f.s)
	if f.s.Status != session.StatusFinished {
		t.Fatalf("finished must be sticky")
	}
}

func TestMoveRequiresActiveGame(t *testing.T) {
	f := newFixture(t)
	if _, err := f.move(MoveRequest{From: "e2", To: "e4"}); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("expected ErrGameNotActive, got %v", err)
	}
}

func TestUntokenedSessionAcceptsMoves(t *testing.T) {
	f := newFixture(t)
	_, _ = auth.BindIdentity(f.s, auth.ChooseWhite, "fid:1", "", time.Now())
	_, _ = auth.BindIdentity(f.s, auth.ChooseBlack, "fid:2", "", time.Now())
	Recompute(f.s)

	res, err := f.move(MoveRequest{From: "e2", To: "e4"})
	if err != nil {
		t.Fatalf("anonymous move: %v", err)
	}
	if res.Turn != session.Black || res.SAN != "e4" || f.s.LastMove.From != "e2" || f.s.LastMove.To != "e4" {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := f.move(MoveRequest{IdentityID: "fid:1", From: "e7", To: "e5"}); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("white identity moved on black's turn: %v", err)
	}
	if _, err := f.move(MoveRequest{IdentityID: "fid:2", From: "e7", To: "e5"}); err != nil {
		t.Fatalf("black identity move: %v", err)
	}
	if !reflect.DeepEqual(f.s.History, []string{"e4", "e5"}) {
		t.Fatalf("history = %v", f.s.History)
	}
}

func TestTokenFailuresLeaveStateUnchanged(t *testing.T) {
	f := newFixture(t)
	white, _, _ := auth.IssueToken(f.s, auth.ChooseWhite, "Alice", time.Now())
	_, _, _ = auth.IssueToken(f.s, auth.ChooseBlack, "Bob", time.Now())
	Recompute(f.s)
	fen, hist, turn := f.snapshot()

	if _, err := f.move(MoveRequest{From: "e2", To: "e4"}); !errors.Is(err, auth.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if _, err := f.move(MoveRequest{Token: "tok_wrong", From: "e2", To: "e4"}); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	gotFen, gotHist, gotTurn := f.snapshot()
	if gotFen != fen || !reflect.DeepEqual(gotHist, hist) || gotTurn != turn {
		t.Fatalf("state changed after auth failure")
	}
	if _, err := f.move(MoveRequest{Token: white, From: "e2", To: "e4"}); err != nil {
		t.Fatalf("valid move: %v", err)
	}
}

func TestNotYourTurnWithSingleTokenSeat(t *testing.T) {
	f := newFixture(t)
	white, _, _ := auth.IssueToken(f.s, auth.ChooseWhite, "Alice", time.Now())
	f.s.Status = session.StatusActive

	if _, err := f.move(MoveRequest{Token: white, From: "e7", To: "e5"}); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("moving black before white: expected ErrNotYourTurn, got %v", err)
	}
	if _, err := f.move(MoveRequest{Token: white, From: "e2", To: "e4"}); err != nil {
		t.Fatalf("white move: %v", err)
	}
	if _, err := f.move(MoveRequest{Token: white, From: "d2", To: "d4"}); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("second white move: expected ErrNotYourTurn, got %v", err)
	}
	if len(f.s.History) != 1 {
		t.Fatalf("history grew on rejected move: %v", f.s.History)
	}
}

func TestIllegalMoveIsSideEffectFree(t *testing.T) {
	f := newFixture(t)
	tok, _ := auth.IssueSoloToken(f.s, "Solo", f.oracle, time.Now())
	fen, hist, turn := f.snapshot()

	if _, err := f.move(MoveRequest{Token: tok, From: "e2", To: "e5"}); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	gotFen, gotHist, gotTurn := f.snapshot()
	if gotFen != fen || !reflect.DeepEqual(gotHist, hist) || gotTurn != turn || f.s.LastMove != nil {
		t.Fatalf("state changed after illegal move")
	}
}

func TestCheckmateFinishesGame(t *testing.T) {
	f := newFixture(t)
	tok, _ := auth.IssueSoloToken(f.s, "Solo", f.oracle, time.Now())
	for _, m := range [][2]string{{"f2", "f3"}, {"e7", "e5"}, {"g2", "g4"}} {
		if _, err := f.move(MoveRequest{Token: tok, From: m[0], To: m[1]}); err != nil {
			t.Fatalf("move %v: %v", m, err)
		}
	}
	res, err := f.move(MoveRequest{Token: tok, From: "d8", To: "h4"})
	if err != nil {
		t.Fatalf("mate: %v", err)
	}
	if !res.Checkmate || res.Status != session.StatusFinished || res.Result != ResultBlackWins || res.Termination != TerminationCheckmate {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := f.move(MoveRequest{Token: tok, From: "a2", To: "a3"}); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("expected ErrGameNotActive after mate, got %v", err)
	}
}

func TestResignAndReset(t *testing.T) {
	f := newFixture(t)
	_, _ = auth.IssueSoloToken(f.s, "Solo", f.oracle, time.Now())
	loser, err := Resign(f.s, []session.Side{session.White, session.Black}, time.Now())
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if loser != session.White || f.s.Result != ResultBlackWins || f.s.Status != session.StatusFinished {
		t.Fatalf("unexpected resign outcome %s %+v", loser, f.s)
	}
	if _, err := Resign(f.s, []session.Side{session.White}, time.Now()); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("expected ErrGameNotActive, got %v", err)
	}

	Reset(f.s, f.oracle, time.Now())
	if f.s.Status != session.StatusWaiting || len(f.s.Players) != 0 || f.s.Result != "" || f.s.Turn != session.White {
		t.Fatalf("reset left %+v", f.s)
	}
}
