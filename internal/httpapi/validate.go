package httpapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/park285/cheese-frames/pkg/chessdto"
)

var validate = validator.New()

// bind parses an optional JSON body into out and validates it. An empty body
// leaves out at its zero value before validation.
func bind(c *fiber.Ctx, out any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(out); err != nil {
			return chessdto.NewError(chessdto.CodeInvalidArgument, "invalid request body: "+err.Error())
		}
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return chessdto.NewError(chessdto.CodeInvalidArgument, err.Error())
		}
		var details strings.Builder
		for _, fe := range verrs {
			if details.Len() > 0 {
				details.WriteString("; ")
			}
			switch fe.Tag() {
			case "required":
				fmt.Fprintf(&details, "%s is required", fe.Field())
			case "oneof":
				fmt.Fprintf(&details, "%s must be one of [%s]", fe.Field(), fe.Param())
			case "len":
				fmt.Fprintf(&details, "%s must be %s characters", fe.Field(), fe.Param())
			case "max":
				fmt.Fprintf(&details, "%s must be at most %s", fe.Field(), fe.Param())
			default:
				fmt.Fprintf(&details, "%s failed %s validation", fe.Field(), fe.Tag())
			}
		}
		return chessdto.NewError(chessdto.CodeInvalidArgument, details.String())
	}
	return nil
}

// bearerToken prefers the Authorization header over a body or query token.
func bearerToken(c *fiber.Ctx, fallback string) string {
	if h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if t := strings.TrimSpace(fallback); t != "" {
		return t
	}
	return strings.TrimSpace(c.Query("token"))
}
