package orchestrator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/park285/cheese-frames/internal/auth"
	"github.com/park285/cheese-frames/internal/session"
	"github.com/park285/cheese-frames/internal/turn"
	"github.com/park285/cheese-frames/pkg/chessdto"
	"go.uber.org/zap"
)

var (
	errBadFrameState = staticErr("malformed frame state")
	errBadInput      = staticErr("expected a square like e2 or a move like e2e4")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

// Frame views. A view fixes the meaning of each button index.
const (
	ViewWaiting  = "waiting"
	ViewActive   = "active"
	ViewSelected = "selected"
	ViewFinished = "finished"
)

// FrameState is the opaque value a frame carries between requests.
type FrameState struct {
	SessionID string `json:"s"`
	Action    string `json:"a"`
	Square    string `json:"q,omitempty"`
}

// EncodeFrameState serializes st as unpadded base64url JSON.
func EncodeFrameState(st FrameState) string {
	raw, _ := json.Marshal(st)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeFrameState is the inverse of EncodeFrameState.
func DecodeFrameState(v string) (FrameState, error) {
	var st FrameState
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(v))
	if err != nil {
		return st, fmt.Errorf("%w: %v", errBadFrameState, err)
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return st, fmt.Errorf("%w: %v", errBadFrameState, err)
	}
	if strings.TrimSpace(st.SessionID) == "" {
		return st, fmt.Errorf("%w: missing session", errBadFrameState)
	}
	return st, nil
}

// FrameAction is one button press.
type FrameAction struct {
	SessionID   string
	IdentityID  string
	DisplayName string
	ButtonIndex int
	InputText   string
	State       string
}

// FrameResult is what the presenter needs to draw the next frame.
type FrameResult struct {
	View     *chessdto.SessionView
	State    FrameState
	Targets  []string
	Notice   string
	Err      *chessdto.DomainError
	Identity string
}

// FrameView renders the frame for id, creating the session on first reference.
func (o *Orchestrator) FrameView(ctx context.Context, id string) (*FrameResult, error) {
	s, err := o.store.GetOrCreate(id)
	if err != nil {
		return nil, toDomainError(err)
	}
	return o.frameFor(s, "", nil), nil
}

// HandleFrameAction interprets a button press against the view it was pressed
// on. Domain failures come back in FrameResult.Err so a frame can still be drawn.
func (o *Orchestrator) HandleFrameAction(ctx context.Context, in FrameAction) (*FrameResult, error) {
	st := FrameState{SessionID: in.SessionID, Action: ViewWaiting}
	if strings.TrimSpace(in.State) != "" {
		decoded, err := DecodeFrameState(in.State)
		if err != nil {
			return nil, toDomainError(err)
		}
		st = decoded
	}
	if _, err := o.store.GetOrCreate(st.SessionID); err != nil {
		return nil, toDomainError(err)
	}
	input := strings.ToLower(strings.Join(strings.Fields(in.InputText), ""))

	var (
		selected string
		notice   string
		err      error
	)
	switch st.Action {
	case ViewWaiting:
		switch in.ButtonIndex {
		case 1:
			notice, err = o.frameJoin(st.SessionID, auth.ChooseWhite, in)
		case 2:
			notice, err = o.frameJoin(st.SessionID, auth.ChooseBlack, in)
		}
	case ViewActive, ViewSelected:
		switch in.ButtonIndex {
		case 1:
			selected, notice, err = o.frameMove(ctx, st, input, in.IdentityID)
		case 2:
			if _, err = o.Resign(ctx, st.SessionID, "", in.IdentityID); err == nil {
				notice = "resigned"
			}
		}
	case ViewFinished:
		if in.ButtonIndex == 1 {
			if _, err = o.NewGame(ctx, st.SessionID, "", in.IdentityID); err == nil {
				notice = "reset"
			}
		}
	}

	s, ok := o.store.Get(st.SessionID)
	if !ok {
		return nil, toDomainError(fmt.Errorf("%w: %s", session.ErrNotFound, st.SessionID))
	}
	res := o.frameFor(s, selected, err)
	res.Notice = notice
	res.Identity = in.IdentityID
	if err != nil {
		o.logger.Debug("frame_action_rejected",
			zap.String("session_id", st.SessionID),
			zap.String("view", st.Action),
			zap.Int("button", in.ButtonIndex),
			zap.Error(err),
		)
	}
	return res, nil
}

func (o *Orchestrator) frameJoin(id string, choice auth.SideChoice, in FrameAction) (string, error) {
	s, err := o.store.Update(id, func(s *session.Session) error {
		if s.Status == session.StatusFinished {
			return turn.ErrGameNotActive
		}
		if _, err := auth.BindIdentity(s, choice, in.IdentityID, in.DisplayName, o.store.Now()); err != nil {
			return err
		}
		turn.Recompute(s)
		return nil
	})
	if err != nil {
		return "", toDomainError(err)
	}
	o.logger.Info("frame_join",
		zap.String("session_id", id),
		zap.String("identity", in.IdentityID),
		zap.String("side", string(choice)),
		zap.String("status", string(s.Status)),
	)
	return "joined", nil
}

// frameMove treats a two-character input as a selection and four or five
// characters as a move. On a selected view a bare square completes the move.
func (o *Orchestrator) frameMove(ctx context.Context, st FrameState, input, identity string) (string, string, error) {
	switch {
	case len(input) == 2 && st.Action == ViewSelected && st.Square != "" && input != st.Square:
		_, err := o.ApplyMove(ctx, MoveCommand{SessionID: st.SessionID, IdentityID: identity, From: st.Square, To: input})
		if err != nil {
			return "", "", err
		}
		return "", "moved", nil
	case len(input) == 2:
		if _, err := o.ValidTargets(ctx, st.SessionID, input); err != nil {
			return "", "", err
		}
		return input, "", nil
	case len(input) == 4 || len(input) == 5:
		_, err := o.ApplyMove(ctx, MoveCommand{
			SessionID:  st.SessionID,
			IdentityID: identity,
			From:       input[:2],
			To:         input[2:4],
			Promotion:  input[4:],
		})
		if err != nil {
			return "", "", err
		}
		return "", "moved", nil
	default:
		return "", "", toDomainError(errBadInput)
	}
}

func (o *Orchestrator) frameFor(s *session.Session, selected string, err error) *FrameResult {
	res := &FrameResult{View: o.view(s)}
	switch s.Status {
	case session.StatusWaiting:
		res.State = FrameState{SessionID: s.ID, Action: ViewWaiting}
	case session.StatusFinished:
		res.State = FrameState{SessionID: s.ID, Action: ViewFinished}
	default:
		res.State = FrameState{SessionID: s.ID, Action: ViewActive}
		if selected != "" {
			if targets, terr := o.oracle.ValidTargets(s.Position, selected); terr == nil {
				res.State = FrameState{SessionID: s.ID, Action: ViewSelected, Square: selected}
				res.Targets = targets
			}
		}
	}
	if err != nil {
		if de, ok := toDomainError(err).(*chessdto.DomainError); ok {
			res.Err = de
		}
	}
	return res
}
