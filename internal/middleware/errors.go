package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
)

// CodedError is an HTTP error carrying a machine-readable code.
type CodedError struct {
	Status  int
	Code    string
	Message string
}

func (e *CodedError) Error() string { return e.Message }

// NewError builds a CodedError.
func NewError(status int, code, message string) *CodedError {
	return &CodedError{Status: status, Code: code, Message: message}
}

// ErrorHandler writes every error as {message, code}.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := fiber.StatusInternalServerError, dto.Error{Message: "internal server error", Code: dto.CodeInternal}

		var (
			coded  *CodedError
			fe     *fiber.Error
			fields form.FieldErrors
		)
		switch {
		case errors.As(err, &coded):
			status, body = coded.Status, dto.Error{Message: coded.Message, Code: coded.Code}
		case errors.As(err, &fields):
			status, body = fiber.StatusBadRequest, dto.Error{Message: fields.First(), Code: dto.CodeValidation}
		case errors.As(err, &fe):
			status, body = fe.Code, dto.Error{Message: fe.Message, Code: codeForStatus(fe.Code)}
		default:
			logger.Error("unhandled error", slog.String("path", c.Path()), slog.String("request_id", RequestIDFrom(c)), slog.Any("error", err))
		}
		return c.Status(status).JSON(body)
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return dto.CodeValidation
	case fiber.StatusUnauthorized:
		return dto.CodeLoginRequired
	case fiber.StatusForbidden:
		return dto.CodeForbidden
	case fiber.StatusNotFound:
		return dto.CodeNotFound
	case fiber.StatusConflict:
		return dto.CodeConflict
	case fiber.StatusTooManyRequests:
		return dto.CodeRateLimited
	default:
		if status >= 500 {
			return dto.CodeInternal
		}
		return ""
	}
}
