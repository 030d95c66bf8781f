package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/park285/cheese-frames/pkg/chessdto"
)

var statusByCode = map[string]int{
	chessdto.CodeNotFound:        fiber.StatusNotFound,
	chessdto.CodeGameNotActive:   fiber.StatusConflict,
	chessdto.CodeNotYourTurn:     fiber.StatusForbidden,
	chessdto.CodeMissingToken:    fiber.StatusUnauthorized,
	chessdto.CodeInvalidToken:    fiber.StatusForbidden,
	chessdto.CodeSeatTaken:       fiber.StatusConflict,
	chessdto.CodeSeatInvalid:     fiber.StatusBadRequest,
	chessdto.CodeIllegalMove:     fiber.StatusUnprocessableEntity,
	chessdto.CodeGameFull:        fiber.StatusConflict,
	chessdto.CodeInvalidArgument: fiber.StatusBadRequest,
	chessdto.CodeInternal:        fiber.StatusInternalServerError,
}

// errorHandler writes every failure as {error, code, retryable}.
func errorHandler(c *fiber.Ctx, err error) error {
	var de *chessdto.DomainError
	if errors.As(err, &de) {
		status, ok := statusByCode[de.Code]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		return c.Status(status).JSON(de)
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := chessdto.CodeInternal
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = chessdto.CodeNotFound
		case fe.Code < fiber.StatusInternalServerError:
			code = chessdto.CodeInvalidArgument
		}
		return c.Status(fe.Code).JSON(chessdto.NewError(code, fe.Message))
	}
	return c.Status(fiber.StatusInternalServerError).JSON(&chessdto.DomainError{
		Code:      chessdto.CodeInternal,
		Message:   err.Error(),
		Retryable: true,
	})
}
