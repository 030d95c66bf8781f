package orchestrator

import (
	"errors"

	"github.com/park285/cheese-frames/internal/auth"
	"github.com/park285/cheese-frames/internal/rules"
	"github.com/park285/cheese-frames/internal/session"
	"github.com/park285/cheese-frames/internal/turn"
	"github.com/park285/cheese-frames/pkg/chessdto"
)

var errorCodes = []struct {
	target error
	code   string
}{
	{session.ErrNotFound, chessdto.CodeNotFound},
	{session.ErrEmptyID, chessdto.CodeInvalidArgument},
	{turn.ErrGameNotActive, chessdto.CodeGameNotActive},
	{turn.ErrNotYourTurn, chessdto.CodeNotYourTurn},
	{turn.ErrIllegalMove, chessdto.CodeIllegalMove},
	{rules.ErrIllegalMove, chessdto.CodeIllegalMove},
	{rules.ErrInvalidSquare, chessdto.CodeInvalidArgument},
	{auth.ErrMissingToken, chessdto.CodeMissingToken},
	{auth.ErrInvalidToken, chessdto.CodeInvalidToken},
	{auth.ErrSeatTaken, chessdto.CodeSeatTaken},
	{auth.ErrSeatedElse, chessdto.CodeSeatTaken},
	{auth.ErrSeatInvalid, chessdto.CodeSeatInvalid},
	{auth.ErrGameFull, chessdto.CodeGameFull},
	{errBadFrameState, chessdto.CodeInvalidArgument},
	{errBadInput, chessdto.CodeInvalidArgument},
}

// toDomainError classifies err into the structured failure returned to callers.
// Unclassified errors become retryable INTERNAL failures.
func toDomainError(err error) error {
	if err == nil {
		return nil
	}
	var de *chessdto.DomainError
	if errors.As(err, &de) {
		return de
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.target) {
			return &chessdto.DomainError{Code: ec.code, Message: err.Error()}
		}
	}
	return &chessdto.DomainError{Code: chessdto.CodeInternal, Message: err.Error(), Retryable: true}
}

// Code extracts the domain code from err, or "" when err is not a domain error.
func Code(err error) string {
	var de *chessdto.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
