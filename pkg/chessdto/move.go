package chessdto

// MoveSummary digests a committed move.
type MoveSummary struct {
	Side        string       `json:"side"`
	SAN         string       `json:"san"`
	UCI         string       `json:"uci"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Status      string       `json:"status"`
	Turn        string       `json:"turn"`
	MovesSAN    []string     `json:"moveHistory"`
	Check       bool         `json:"check"`
	Checkmate   bool         `json:"checkmate"`
	Draw        bool         `json:"draw"`
	Finished    bool         `json:"finished"`
	Result      string       `json:"result,omitempty"`
	Termination string       `json:"termination,omitempty"`
	State       *SessionView `json:"session,omitempty"`
}
