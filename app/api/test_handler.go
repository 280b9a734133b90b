package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"bezbot/store"
	"bezbot/types"
)

type TestHandler struct {
	testStore store.TestStorer
}

func NewTestHandler(testStore store.TestStorer) *TestHandler {
	return &TestHandler{
		testStore: testStore,
	}
}

// HandlePostTest записывает попытку; уровень пользователя пересчитывается в store.
func (h *TestHandler) HandlePostTest(c *fiber.Ctx) error {
	var params types.CreateTestParams
	if err := parseBody(c, &params); err != nil {
		return err
	}

	id, err := h.testStore.CreateTest(c.UserContext(), params)
	if errors.Is(err, store.ErrNotFound) {
		return NewError(fiber.StatusNotFound, "Пользователь не найден")
	}
	if err != nil {
		return err
	}
	return c.JSON(types.CreatedResponse{ID: id, Message: "Тест успешно создан"})
}
