package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-frames/internal/rules"
	"github.com/park285/cheese-frames/internal/session"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	return session.New("g1", rules.NewEngine().Initial(), time.Now())
}

func TestIssueTokenSeatsRequestedSide(t *testing.T) {
	s := newSession(t)
	tok, side, err := IssueToken(s, ChooseWhite, "  Alice ", time.Now())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if side != session.White || !strings.HasPrefix(tok, "tok_") || len(tok) != len("tok_")+48 {
		t.Fatalf("unexpected token %q side %q", tok, side)
	}
	b := s.Player(session.White)
	if b.DisplayName != "Alice" || b.Provenance != session.ProvenanceToken || strings.Contains(b.ID, tok) {
		t.Fatalf("unexpected binding %+v", b)
	}
	if _, _, err := IssueToken(s, ChooseWhite, "Eve", time.Now()); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("expected ErrSeatTaken, got %v", err)
	}
	if _, _, err := IssueToken(s, SideChoice("purple"), "Eve", time.Now()); !errors.Is(err, ErrSeatInvalid) {
		t.Fatalf("expected ErrSeatInvalid, got %v", err)
	}
}

func TestRandomSeatFillsOpenSideThenReportsFull(t *testing.T) {
	s := newSession(t)
	_, first, err := IssueToken(s, ChooseRandom, "", time.Now())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	_, second, err := IssueToken(s, ChooseRandom, "", time.Now())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first == second {
		t.Fatalf("random seat reused %s", first)
	}
	if _, _, err := IssueToken(s, ChooseRandom, "", time.Now()); !errors.Is(err, ErrGameFull) {
		t.Fatalf("expected ErrGameFull, got %v", err)
	}
}

func TestAuthorizeAndRequiresToken(t *testing.T) {
	s := newSession(t)
	if RequiresToken(s) {
		t.Fatalf("empty session must not require tokens")
	}
	if _, err := BindIdentity(s, ChooseBlack, "fid:9", "Bob", time.Now()); err != nil {
		t.Fatalf("BindIdentity: %v", err)
	}
	if RequiresToken(s) {
		t.Fatalf("identity seats must not require tokens")
	}
	tok, _, _ := IssueToken(s, ChooseWhite, "Alice", time.Now())
	if !RequiresToken(s) {
		t.Fatalf("token seat must require tokens")
	}
	if got := Authorize(s, tok); len(got) != 1 || got[0] != session.White {
		t.Fatalf("Authorize = %v", got)
	}
	if got := Authorize(s, "tok_nope"); len(got) != 0 {
		t.Fatalf("unknown token authorized %v", got)
	}
	if got := Authorize(s, ""); len(got) != 0 {
		t.Fatalf("empty token authorized %v", got)
	}
}

func TestSoloTokenCoversBothSidesAndResets(t *testing.T) {
	e := rules.NewEngine()
	s := newSession(t)
	out, _ := e.Apply(s.Position, "e2", "e4", "")
	s.SetPosition(out.Position)
	s.History = []string{"e4"}
	s.Status = session.StatusFinished

	tok, err := IssueSoloToken(s, "Solo", e, time.Now())
	if err != nil {
		t.Fatalf("IssueSoloToken: %v", err)
	}
	if s.Status != session.StatusActive || len(s.History) != 0 || s.Turn != session.White {
		t.Fatalf("solo did not reset: %+v", s)
	}
	if got := Authorize(s, tok); len(got) != 2 {
		t.Fatalf("solo token should authorize both sides, got %v", got)
	}
}

func TestBindIdentityIsIdempotent(t *testing.T) {
	s := newSession(t)
	side, err := BindIdentity(s, ChooseWhite, "fid:1", "One", time.Now())
	if err != nil || side != session.White {
		t.Fatalf("BindIdentity: %v %v", side, err)
	}
	again, err := BindIdentity(s, ChooseRandom, "fid:1", "One", time.Now())
	if err != nil || again != session.White {
		t.Fatalf("rebind: %v %v", again, err)
	}
	if _, err := BindIdentity(s, ChooseBlack, "fid:1", "One", time.Now()); !errors.Is(err, ErrSeatedElse) {
		t.Fatalf("expected ErrSeatedElse, got %v", err)
	}
	if _, err := BindIdentity(s, ChooseWhite, "fid:2", "Two", time.Now()); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("expected ErrSeatTaken, got %v", err)
	}
}

func TestSidesFor(t *testing.T) {
	s := newSession(t)
	if sides, err := SidesFor(s, "", ""); err != nil || len(sides) != 2 {
		t.Fatalf("anonymous actor on open session: %v %v", sides, err)
	}
	_, _ = BindIdentity(s, ChooseWhite, "fid:1", "", time.Now())
	if sides, _ := SidesFor(s, "", "fid:1"); len(sides) != 1 || sides[0] != session.White {
		t.Fatalf("identity sides = %v", sides)
	}
	if sides, _ := SidesFor(s, "", "fid:404"); len(sides) != 0 {
		t.Fatalf("unseated identity got %v", sides)
	}
	_, _, _ = IssueToken(s, ChooseBlack, "", time.Now())
	if _, err := SidesFor(s, "", "fid:1"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if _, err := SidesFor(s, "tok_bad", ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
