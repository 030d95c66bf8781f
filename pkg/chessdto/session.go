package chessdto

import "time"

// LastMove is the previous move's endpoints.
type LastMove struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SessionView is the public projection of a session. It never carries tokens.
type SessionView struct {
	ID          string                 `json:"id"`
	FEN         string                 `json:"fen"`
	Status      string                 `json:"status"`
	Turn        string                 `json:"turn"`
	MovesSAN    []string               `json:"moveHistory"`
	MoveCount   int                    `json:"moveCount"`
	LastMove    *LastMove              `json:"lastMove,omitempty"`
	Players     map[string]*PlayerView `json:"players"`
	Check       bool                   `json:"check"`
	Checkmate   bool                   `json:"checkmate"`
	Draw        bool                   `json:"draw"`
	Result      string                 `json:"result,omitempty"`
	Termination string                 `json:"termination,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// SessionSummary is one row of the session list.
type SessionSummary struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Turn      string `json:"turn"`
	MoveCount int    `json:"moveCount"`
}
