package api

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"bezbot/app/agent"
	"bezbot/quiz"
	"bezbot/retrieval"
	"bezbot/store"
)

func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		apiErr   Error
		valErr   ValidationError
		fiberErr *fiber.Error
	)
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &valErr):
		return c.Status(valErr.Status).JSON(valErr)
	case errors.As(err, &fiberErr):
		apiErr = NewError(fiberErr.Code, fiberErr.Message)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, quiz.ErrModuleNotFound):
		apiErr = NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, retrieval.ErrBackend), errors.Is(err, agent.ErrBackend):
		apiErr = NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, retrieval.ErrEmptyQuery):
		apiErr = NewError(fiber.StatusBadRequest, err.Error())
	default:
		apiErr = NewError(fiber.StatusInternalServerError, err.Error())
	}

	level := slog.LevelWarn
	if apiErr.Code >= fiber.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(c.UserContext(), level, "request failed",
		"method", c.Method(),
		"path", c.Path(),
		"code", apiErr.Code,
		"error", apiErr.Message,
	)
	return c.Status(apiErr.Code).JSON(apiErr)
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrInvalidID(param string) ValidationError {
	return NewValidationError(map[string]string{param: "must be an integer"})
}

func ErrNotFound[T any](arg T, resource string) Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with %v not found", resource, arg),
	}
}
