package archive

import (
	"fmt"
	"strings"
	"time"
)

const pgnEvent = "Cheese Frames"

// Game holds what a PGN needs.
type Game struct {
	White       string
	Black       string
	Result      string
	Termination string
	MovesSAN    []string
	Date        time.Time
}

// BuildPGN renders g with a seven-tag-style header. An empty result is "*".
func BuildPGN(g Game) string {
	result := strings.TrimSpace(g.Result)
	if result == "" {
		result = "*"
	}
	date := g.Date
	if date.IsZero() {
		date = time.Now()
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[Event \"%s\"]\n", pgnEvent))
	b.WriteString("[Site \"?\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(orUnknown(g.White))))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(orUnknown(g.Black))))
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n", result))
	if t := strings.TrimSpace(g.Termination); t != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(t))))
	}
	b.WriteString("\n")

	for i := 0; i < len(g.MovesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s ", i/2+1, strings.TrimSpace(g.MovesSAN[i])))
		if i+1 < len(g.MovesSAN) {
			b.WriteString(strings.TrimSpace(g.MovesSAN[i+1]))
			b.WriteString(" ")
		}
	}
	b.WriteString(result)
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
