package chessdto

type JoinRequest struct {
	Color string `json:"color" validate:"max=16"`
	Name  string `json:"name" validate:"max=64"`
}

type JoinResponse struct {
	SessionID string       `json:"sessionId"`
	Token     string       `json:"token"`
	Color     string       `json:"color"`
	State     *SessionView `json:"session"`
}

type SoloRequest struct {
	Name      string `json:"name" validate:"max=64"`
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
}

type SoloResponse struct {
	SessionID string       `json:"sessionId"`
	Token     string       `json:"token"`
	State     *SessionView `json:"session"`
}

type MoveRequest struct {
	From      string `json:"from" validate:"required,len=2"`
	To        string `json:"to" validate:"required,len=2"`
	Promotion string `json:"promotion" validate:"omitempty,oneof=q r b n"`
	Token     string `json:"token"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type TargetsResponse struct {
	Square  string   `json:"square"`
	Targets []string `json:"targets"`
}
