package respond

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudi_pay/internal/apperr"
)

// Envelope is the uniform response body for every endpoint.
type Envelope struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Payload    any    `json:"payload,omitempty"`
	Token      string `json:"token,omitempty"`
}

// Success writes a success envelope with the given payload.
func Success(c *fiber.Ctx, statusCode int, message string, payload any) error {
	return c.Status(statusCode).JSON(Envelope{
		Status:     "success",
		StatusCode: statusCode,
		Message:    message,
		Payload:    payload,
	})
}

// SuccessWithToken is Success plus a bearer token at the envelope top level.
func SuccessWithToken(c *fiber.Ctx, statusCode int, message string, payload any, token string) error {
	return c.Status(statusCode).JSON(Envelope{
		Status:     "success",
		StatusCode: statusCode,
		Message:    message,
		Payload:    payload,
		Token:      token,
	})
}

// Failure writes a failure envelope with no payload.
func Failure(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Envelope{
		Status:     "failure",
		StatusCode: statusCode,
		Message:    message,
	})
}

// ErrorHandler converts errors escaping handlers into failure envelopes.
// Domain errors map to their declared status; fiber errors keep their code;
// anything else becomes a 500 with a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		return Failure(c, domainErr.Kind.HTTPStatus(), domainErr.Message)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return Failure(c, fiberErr.Code, fiberErr.Message)
	}

	return Failure(c, fiber.StatusInternalServerError, "internal server error")
}
