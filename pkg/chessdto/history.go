package chessdto

import "time"

// ArchivedGame is a finished game as kept by the archive.
type ArchivedGame struct {
	SessionID   string        `json:"sessionId"`
	WhiteName   string        `json:"white"`
	BlackName   string        `json:"black"`
	Result      string        `json:"result"`
	Termination string        `json:"termination"`
	MovesUCI    []string      `json:"movesUci"`
	MovesSAN    []string      `json:"movesSan"`
	PGN         string        `json:"pgn"`
	StartedAt   time.Time     `json:"startedAt"`
	EndedAt     time.Time     `json:"endedAt"`
	Duration    time.Duration `json:"duration"`
}
