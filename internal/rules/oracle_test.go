package rules

import (
	"errors"
	"reflect"
	"testing"
)

func play(t *testing.T, e *Engine, pos *Position, moves ...string) *Position {
	t.Helper()
	for _, m := range moves {
		out, err := e.Apply(pos, m[:2], m[2:4], m[4:])
		if err != nil {
			t.Fatalf("Apply %s: %v", m, err)
		}
		pos = out.Position
	}
	return pos
}

func TestApplyReturnsSANAndLeavesInputUntouched(t *testing.T) {
	e := NewEngine()
	start := e.Initial()
	before := e.Serialize(start)

	out, err := e.Apply(start, "e2", "e4", "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.SAN != "e4" {
		t.Fatalf("expected SAN e4, got %q", out.SAN)
	}
	if out.UCI != "e2e4" {
		t.Fatalf("expected UCI e2e4, got %q", out.UCI)
	}
	if out.SideToMove != "black" {
		t.Fatalf("expected black to move, got %q", out.SideToMove)
	}
	if e.Serialize(start) != before {
		t.Fatalf("input position mutated")
	}
}

func TestApplyRejectsIllegalMove(t *testing.T) {
	e := NewEngine()
	if _, err := e.Apply(e.Initial(), "e2", "e5", ""); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	if _, err := e.Apply(e.Initial(), "e3", "e4", ""); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove for empty source, got %v", err)
	}
	if _, err := e.Apply(e.Initial(), "z9", "e4", ""); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove for bad square, got %v", err)
	}
}

func TestApplyDefaultsPromotionToQueen(t *testing.T) {
	e := NewEngine()
	pos, err := e.Load("8/P7/8/8/8/8/8/k6K w - - 0 1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := e.Apply(pos, "a7", "a8", "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.UCI != "a7a8q" {
		t.Fatalf("expected queen promotion, got %q", out.UCI)
	}
	under, err := e.Apply(pos, "a7", "a8", "n")
	if err != nil {
		t.Fatalf("Apply knight: %v", err)
	}
	if under.UCI != "a7a8n" {
		t.Fatalf("expected knight promotion, got %q", under.UCI)
	}
}

func TestFoolsMateIsCheckmate(t *testing.T) {
	e := NewEngine()
	pos := play(t, e, e.Initial(), "f2f3", "e7e5", "g2g4")
	out, err := e.Apply(pos, "d8", "h4", "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !out.Checkmate || !out.Check {
		t.Fatalf("expected checkmate, got %+v", out)
	}
	if out.SAN != "Qh4#" {
		t.Fatalf("expected Qh4#, got %q", out.SAN)
	}
	st := e.Status(out.Position)
	if !st.Terminal() || st.SideToMove != "white" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestValidTargets(t *testing.T) {
	e := NewEngine()
	got, err := e.ValidTargets(e.Initial(), "e2")
	if err != nil {
		t.Fatalf("ValidTargets: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"e3", "e4"}) {
		t.Fatalf("expected [e3 e4], got %v", got)
	}
	knight, _ := e.ValidTargets(e.Initial(), "g1")
	if !reflect.DeepEqual(knight, []string{"f3", "h3"}) {
		t.Fatalf("expected [f3 h3], got %v", knight)
	}
	empty, _ := e.ValidTargets(e.Initial(), "e4")
	if len(empty) != 0 {
		t.Fatalf("expected no targets from empty square, got %v", empty)
	}
	if _, err := e.ValidTargets(e.Initial(), "x1"); !errors.Is(err, ErrInvalidSquare) {
		t.Fatalf("expected ErrInvalidSquare, got %v", err)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	e := NewEngine()
	if _, err := e.Load("not a fen"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	if _, err := e.Load(""); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat for empty input, got %v", err)
	}
}

func TestReplayMatchesApply(t *testing.T) {
	e := NewEngine()
	applied := play(t, e, e.Initial(), "e2e4", "e7e5", "g1f3")
	replayed, err := e.Replay([]string{"e2e4", "e7e5", "g1f3"})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if e.Serialize(applied) != e.Serialize(replayed) {
		t.Fatalf("replay mismatch: %q vs %q", e.Serialize(applied), e.Serialize(replayed))
	}
	if _, err := e.Replay([]string{"e2e5"}); err == nil {
		t.Fatalf("expected replay error")
	}
}

func TestStatusReportsCheckForLoadedPosition(t *testing.T) {
	e := NewEngine()
	cases := []struct {
		fen   string
		check bool
	}{
		{"rnbqkbnr/ppppp1pp/8/5p1Q/4P3/8/PPPP1PPP/RNB1KBNR b KQkq - 1 2", true},
		{"4k3/8/8/8/8/8/3p4/4K3 w - - 0 1", true},
		{"4k3/8/5N2/8/8/8/8/4K3 b - - 0 1", true},
		{"4k3/4p3/8/8/8/8/8/4R1K1 b - - 0 1", false},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", false},
	}
	for _, tc := range cases {
		pos, err := e.Load(tc.fen)
		if err != nil {
			t.Fatalf("Load %q: %v", tc.fen, err)
		}
		if got := e.Status(pos).Check; got != tc.check {
			t.Fatalf("Check for %q = %v, want %v", tc.fen, got, tc.check)
		}
	}
}

func TestLoadedCheckMatchesLiveCheck(t *testing.T) {
	e := NewEngine()
	live := play(t, e, e.Initial(), "e2e4", "f7f6", "d1h5")
	if !e.Status(live).Check {
		t.Fatalf("live position should be check")
	}
	loaded, err := e.Load(e.Serialize(live))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !e.Status(loaded).Check {
		t.Fatalf("loaded position lost check")
	}
}
