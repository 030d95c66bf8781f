package framepresenter

import (
	"strings"

	"github.com/park285/cheese-frames/internal/msgcat"
	"github.com/park285/cheese-frames/internal/orchestrator"
	"github.com/park285/cheese-frames/pkg/chessdto"
)

// Formatter turns frame results into catalog text.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) Title() string {
	return f.cat.Text("frame.title", nil, "Chess")
}

func (f *Formatter) Button(name, fallback string) string {
	return f.cat.Text("frame.buttons."+name, nil, fallback)
}

func (f *Formatter) InputHint() string {
	return f.cat.Text("frame.input.active", nil, "e2 or e2e4")
}

// Status describes the board state in one line.
func (f *Formatter) Status(res *orchestrator.FrameResult) string {
	v := res.View
	switch res.State.Action {
	case orchestrator.ViewWaiting:
		return f.cat.Text("frame.status.waiting", map[string]any{
			"White": seatName(v, "white", "White"),
			"Black": seatName(v, "black", "Black"),
		}, "Waiting for players")
	case orchestrator.ViewFinished:
		return f.cat.Text("frame.status.finished", map[string]any{
			"Result":      v.Result,
			"Termination": v.Termination,
		}, "Game over")
	case orchestrator.ViewSelected:
		return f.cat.Text("frame.status.selected", map[string]any{
			"Square": res.State.Square,
			"Count":  len(res.Targets),
		}, res.State.Square)
	default:
		return f.cat.Text("frame.status.active", map[string]any{
			"TurnName":   seatName(v, v.Turn, titleCase(v.Turn)),
			"Check":      v.Check,
			"MoveNumber": v.MoveCount/2 + 1,
		}, "In progress")
	}
}

// Notice is the feedback line for the last action, if any.
func (f *Formatter) Notice(res *orchestrator.FrameResult) string {
	if res.Err != nil {
		return f.Error(res.Err)
	}
	v := res.View
	switch res.Notice {
	case "joined":
		for side, p := range v.Players {
			if p != nil && p.ID == res.Identity {
				return f.cat.Text("frame.notice.joined", map[string]any{"Name": p.DisplayName, "Side": side}, "")
			}
		}
	case "moved":
		if n := len(v.MovesSAN); n > 0 {
			mover := "white"
			if n%2 == 0 {
				mover = "black"
			}
			return f.cat.Text("frame.notice.moved", map[string]any{"Side": titleCase(mover), "SAN": v.MovesSAN[n-1]}, "")
		}
	case "resigned":
		loser := "White"
		if v.Result == "1-0" {
			loser = "Black"
		}
		return f.cat.Text("frame.notice.resigned", map[string]any{"Side": loser}, "")
	case "reset":
		return f.cat.Text("frame.notice.reset", nil, "")
	}
	return ""
}

func (f *Formatter) Error(err *chessdto.DomainError) string {
	if err == nil {
		return ""
	}
	return f.cat.Text("error."+err.Code, nil, err.Error())
}

func seatName(v *chessdto.SessionView, side, fallback string) string {
	if p := v.Players[side]; p != nil && strings.TrimSpace(p.DisplayName) != "" {
		return p.DisplayName
	}
	return fallback
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
