package chessdto

// Error codes surfaced by the orchestrator.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeGameNotActive   = "GAME_NOT_ACTIVE"
	CodeNotYourTurn     = "NOT_YOUR_TURN"
	CodeMissingToken    = "MISSING_TOKEN"
	CodeInvalidToken    = "INVALID_TOKEN"
	CodeSeatTaken       = "SEAT_TAKEN"
	CodeSeatInvalid     = "SEAT_INVALID"
	CodeIllegalMove     = "ILLEGAL_MOVE"
	CodeGameFull        = "GAME_FULL"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInternal        = "INTERNAL"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess session error"
}

// NewError builds a non-retryable domain error.
func NewError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}
