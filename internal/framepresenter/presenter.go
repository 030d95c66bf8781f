// Package framepresenter builds frame markup from orchestrator results.
package framepresenter

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/park285/cheese-frames/internal/orchestrator"
)

// Button is one frame button.
type Button struct {
	Index int
	Label string
}

// Frame is the view model behind the markup.
type Frame struct {
	Title    string
	Status   string
	Notice   string
	ImageURL string
	PostURL  string
	Input    string
	State    string
	Buttons  []Button
}

// Presenter lays out frames for a public base URL.
type Presenter struct {
	baseURL   string
	formatter *Formatter
}

func NewPresenter(baseURL string, formatter *Formatter) *Presenter {
	return &Presenter{baseURL: strings.TrimRight(baseURL, "/"), formatter: formatter}
}

// Build maps a result onto buttons whose indexes match what the orchestrator
// expects for the encoded view.
func (p *Presenter) Build(res *orchestrator.FrameResult) *Frame {
	f := p.formatter
	fr := &Frame{
		Title:    f.Title(),
		Status:   f.Status(res),
		Notice:   f.Notice(res),
		ImageURL: p.imageURL(res),
		PostURL:  p.baseURL + "/frames",
		State:    orchestrator.EncodeFrameState(res.State),
	}
	switch res.State.Action {
	case orchestrator.ViewWaiting:
		fr.Buttons = []Button{
			{1, f.Button("join_white", "Join as White")},
			{2, f.Button("join_black", "Join as Black")},
			{3, f.Button("refresh", "Refresh")},
		}
	case orchestrator.ViewFinished:
		fr.Buttons = []Button{
			{1, f.Button("new_game", "New game")},
			{2, f.Button("refresh", "Refresh")},
		}
	default:
		fr.Input = f.InputHint()
		fr.Buttons = []Button{
			{1, f.Button("move", "Move")},
			{2, f.Button("resign", "Resign")},
			{3, f.Button("refresh", "Refresh")},
		}
	}
	return fr
}

func (p *Presenter) imageURL(res *orchestrator.FrameResult) string {
	q := url.Values{}
	if res.State.Square != "" {
		q.Set("select", res.State.Square)
	}
	q.Set("v", fmt.Sprintf("%d-%d", res.View.MoveCount, res.View.UpdatedAt.UnixMilli()))
	return fmt.Sprintf("%s/board/%s.png?%s", p.baseURL, url.PathEscape(res.View.ID), q.Encode())
}

var frameTemplate = template.Must(template.New("frame").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta property="og:title" content="{{.Title}}">
<meta property="og:image" content="{{.ImageURL}}">
<meta property="fc:frame" content="vNext">
<meta property="fc:frame:image" content="{{.ImageURL}}">
<meta property="fc:frame:image:aspect_ratio" content="1:1">
<meta property="fc:frame:post_url" content="{{.PostURL}}">
<meta property="fc:frame:state" content="{{.State}}">
{{- if .Input}}
<meta property="fc:frame:input:text" content="{{.Input}}">
{{- end}}
{{- range .Buttons}}
<meta property="fc:frame:button:{{.Index}}" content="{{.Label}}">
{{- end}}
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Status}}</p>
{{- if .Notice}}
<p>{{.Notice}}</p>
{{- end}}
<img src="{{.ImageURL}}" alt="board">
</body>
</html>
`))

// Render writes the frame document.
func (p *Presenter) Render(fr *Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := frameTemplate.Execute(&buf, fr); err != nil {
		return nil, fmt.Errorf("render frame: %w", err)
	}
	return buf.Bytes(), nil
}
