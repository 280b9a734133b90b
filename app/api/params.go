package api

import (
	"github.com/gofiber/fiber/v2"

	"bezbot/types"
)

// parseBody разбирает JSON в params (заранее заполненные значениями
// по умолчанию) и валидирует их.
func parseBody(c *fiber.Ctx, params types.Validater) error {
	if err := c.BodyParser(params); err != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(params); len(errors) > 0 {
		return NewValidationError(errors)
	}
	return nil
}

func paramInt(c *fiber.Ctx, name string) (int, error) {
	id, err := c.ParamsInt(name)
	if err != nil {
		return 0, ErrInvalidID(name)
	}
	return id, nil
}
