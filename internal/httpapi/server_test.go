package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/park285/cheese-frames/internal/archive"
	"github.com/park285/cheese-frames/internal/framepresenter"
	"github.com/park285/cheese-frames/internal/hubclient"
	"github.com/park285/cheese-frames/internal/msgcat"
	"github.com/park285/cheese-frames/internal/orchestrator"
	"github.com/park285/cheese-frames/internal/rules"
	"github.com/park285/cheese-frames/internal/session"
	"github.com/park285/cheese-frames/pkg/chessdto"
)

func newTestApp(t *testing.T, opts ...Option) *fiber.App {
	t.Helper()
	persister := session.NewPersister(session.NewMemoryBackend(), nil)
	store := session.NewStore(rules.NewEngine(), session.WithPersister(persister))
	t.Cleanup(func() { _ = store.Close() })
	orch := orchestrator.New(store, orchestrator.WithArchive(archive.NewMemoryRepository()))
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	presenter := framepresenter.NewPresenter("https://frames.example", framepresenter.NewFormatter(cat))
	opts = append([]Option{WithPersistStats(persister)}, opts...)
	return NewApp(NewHandler(orch, presenter, opts...))
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

func TestJSONGameFlow(t *testing.T) {
	app := newTestApp(t)
	status, body := do(t, app, http.MethodPost, "/api/v1/sessions", "", nil)
	if status != fiber.StatusCreated {
		t.Fatalf("create status %d: %s", status, body)
	}
	id := decode[chessdto.SessionView](t, body).ID

	status, body = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/join", "", map[string]string{"color": "white", "name": "Alice"})
	if status != fiber.StatusOK {
		t.Fatalf("join status %d: %s", status, body)
	}
	white := decode[chessdto.JoinResponse](t, body)
	_, body = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/join", "", map[string]string{"color": "black", "name": "Bob"})
	black := decode[chessdto.JoinResponse](t, body)
	if black.State.Status != "active" {
		t.Fatalf("expected active after both joins, got %s", black.State.Status)
	}

	status, body = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/moves", white.Token, map[string]string{"from": "E2", "to": "e4"})
	if status != fiber.StatusOK {
		t.Fatalf("move status %d: %s", status, body)
	}
	if mv := decode[chessdto.MoveSummary](t, body); mv.SAN != "e4" || mv.Turn != "black" {
		t.Fatalf("unexpected move %+v", mv)
	}

	status, body = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/moves", white.Token, map[string]string{"from": "d2", "to": "d4"})
	if status != fiber.StatusForbidden || decode[chessdto.DomainError](t, body).Code != chessdto.CodeNotYourTurn {
		t.Fatalf("expected 403 NOT_YOUR_TURN, got %d %s", status, body)
	}
	status, body = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/moves", "", map[string]string{"from": "e7", "to": "e5"})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", status, body)
	}
	status, body = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/moves", black.Token, map[string]string{"from": "e7", "to": "e4"})
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", status, body)
	}
	status, body = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/moves", black.Token, map[string]string{"from": "e7"})
	if status != fiber.StatusBadRequest || !strings.Contains(string(body), "To is required") {
		t.Fatalf("expected validation error, got %d %s", status, body)
	}

	status, body = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/resign", "", map[string]string{"token": black.Token})
	if status != fiber.StatusOK || decode[chessdto.SessionView](t, body).Result != "1-0" {
		t.Fatalf("resign failed %d %s", status, body)
	}
	status, body = do(t, app, http.MethodGet, "/api/v1/sessions/"+id+"/pgn", "", nil)
	if status != fiber.StatusOK || !strings.Contains(string(body), "1. e4 1-0") {
		t.Fatalf("pgn %d %s", status, body)
	}
	status, body = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/join", "", map[string]string{"color": "white"})
	if status != fiber.StatusConflict || decode[chessdto.DomainError](t, body).Code != chessdto.CodeGameNotActive {
		t.Fatalf("expected 409 GAME_NOT_ACTIVE on finished game, got %d %s", status, body)
	}
	status, _ = do(t, app, http.MethodGet, "/api/v1/sessions/missing", "", nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestJoinClassifiesSeatChoice(t *testing.T) {
	app := newTestApp(t)
	_, body := do(t, app, http.MethodPost, "/api/v1/sessions", "", nil)
	id := decode[chessdto.SessionView](t, body).ID

	status, body := do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/join", "", map[string]string{"color": "purple"})
	if status != fiber.StatusBadRequest || decode[chessdto.DomainError](t, body).Code != chessdto.CodeSeatInvalid {
		t.Fatalf("expected 400 SEAT_INVALID, got %d %s", status, body)
	}
	status, body = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/join", "", map[string]string{"color": "any", "name": "Rae"})
	if status != fiber.StatusOK {
		t.Fatalf("random seat alias rejected: %d %s", status, body)
	}
	status, body = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/join", "", map[string]string{"color": strings.Repeat("w", 17)})
	if status != fiber.StatusBadRequest || decode[chessdto.DomainError](t, body).Code != chessdto.CodeInvalidArgument {
		t.Fatalf("expected 400 INVALID_ARGUMENT for oversized color, got %d %s", status, body)
	}
}

func TestSoloTargetsBoardAndHealth(t *testing.T) {
	app := newTestApp(t)
	status, body := do(t, app, http.MethodPost, "/api/v1/solo", "", nil)
	if status != fiber.StatusCreated {
		t.Fatalf("solo status %d: %s", status, body)
	}
	solo := decode[chessdto.SoloResponse](t, body)

	_, body = do(t, app, http.MethodGet, "/api/v1/sessions/"+solo.SessionID+"/targets/G1", "", nil)
	if tr := decode[chessdto.TargetsResponse](t, body); strings.Join(tr.Targets, ",") != "f3,h3" {
		t.Fatalf("targets %+v", tr)
	}

	req := httptest.NewRequest(http.MethodGet, "/board/"+solo.SessionID+".png?select=e2", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("board status %d type %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("board Cache-Control = %q", cc)
	}

	status, body = do(t, app, http.MethodGet, "/health", "", nil)
	if status != fiber.StatusOK || !strings.Contains(string(body), `"persistence"`) {
		t.Fatalf("health %d %s", status, body)
	}
	_, body = do(t, app, http.MethodGet, "/api/v1/sessions", "", nil)
	if !strings.Contains(string(body), solo.SessionID) {
		t.Fatalf("list missing session: %s", body)
	}
}

func frameBody(fid uint64, button int, input, state string) map[string]any {
	return map[string]any{
		"untrustedData": map[string]any{"fid": fid, "buttonIndex": button, "inputText": input, "state": state},
		"trustedData":   map[string]any{"messageBytes": "0a0b"},
	}
}

func frameState(t *testing.T, page []byte) string {
	t.Helper()
	const marker = `<meta property="fc:frame:state" content="`
	s := string(page)
	i := strings.Index(s, marker)
	if i < 0 {
		t.Fatalf("no state in page:\n%s", s)
	}
	s = s[i+len(marker):]
	return s[:strings.Index(s, `"`)]
}

func TestFrameEndpoints(t *testing.T) {
	app := newTestApp(t)
	status, page := do(t, app, http.MethodGet, "/frames/table-1", "", nil)
	if status != fiber.StatusOK || !strings.Contains(string(page), `content="Join as White"`) {
		t.Fatalf("frame view %d:\n%s", status, page)
	}
	state := frameState(t, page)

	_, page = do(t, app, http.MethodPost, "/frames", "", frameBody(7, 1, "", state))
	_, page = do(t, app, http.MethodPost, "/frames", "", frameBody(8, 2, "", frameState(t, page)))
	if !strings.Contains(string(page), `content="Resign"`) {
		t.Fatalf("expected active frame:\n%s", page)
	}
	_, page = do(t, app, http.MethodPost, "/frames", "", frameBody(7, 1, "e2", frameState(t, page)))
	if !strings.Contains(string(page), "select=e2") {
		t.Fatalf("expected selection in image url:\n%s", page)
	}
	_, page = do(t, app, http.MethodPost, "/frames", "", frameBody(7, 1, "e4", frameState(t, page)))
	if !strings.Contains(string(page), "White played e4") {
		t.Fatalf("expected move notice:\n%s", page)
	}

	status, _ = do(t, app, http.MethodPost, "/frames", "", frameBody(7, 1, "", "garbage!"))
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for bad state, got %d", status)
	}
}

type fakeHub struct {
	action *hubclient.Action
	err    error
}

func (f fakeHub) Validate(context.Context, string) (*hubclient.Action, error) { return f.action, f.err }

func TestFrameValidationUsesVerifiedAction(t *testing.T) {
	hub := &fakeHub{}
	app := newTestApp(t, WithFrameValidator(hub))
	_, page := do(t, app, http.MethodGet, "/frames/table-2", "", nil)
	state := frameState(t, page)

	hub.action = &hubclient.Action{FID: 42, ButtonIndex: 2, State: state}
	_, page = do(t, app, http.MethodPost, "/frames", "", frameBody(1, 1, "", state))
	if !strings.Contains(string(page), "fid:42 joined as black") {
		t.Fatalf("verified action not used:\n%s", page)
	}

	hub.err = errors.New("bad signature")
	status, _ := do(t, app, http.MethodPost, "/frames", "", frameBody(1, 1, "", state))
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 on failed validation, got %d", status)
	}
	body := frameBody(1, 1, "", state)
	body["trustedData"] = map[string]any{}
	status, _ = do(t, app, http.MethodPost, "/frames", "", body)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without message bytes, got %d", status)
	}
}
