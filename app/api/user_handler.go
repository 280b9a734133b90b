package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"bezbot/store"
	"bezbot/types"
)

type UserHandler struct {
	userStore store.UserStorer
}

func NewUserHandler(userStore store.UserStorer) *UserHandler {
	return &UserHandler{
		userStore: userStore,
	}
}

func (h *UserHandler) HandlePostUser(c *fiber.Ctx) error {
	var params types.CreateUserParams
	if err := parseBody(c, &params); err != nil {
		return err
	}

	id, err := h.userStore.CreateUser(c.UserContext(), params)
	if err != nil {
		return err
	}
	return c.JSON(types.CreatedResponse{ID: id, Message: "Пользователь успешно создан"})
}

func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return err
	}

	user, err := h.userStore.GetUserByID(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return NewError(fiber.StatusNotFound, "Пользователь не найден")
	}
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (h *UserHandler) HandleGetUsers(c *fiber.Ctx) error {
	users, err := h.userStore.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

func (h *UserHandler) HandlePutUserLevel(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return err
	}
	var params types.UpdateLevelParams
	if err := parseBody(c, &params); err != nil {
		return err
	}

	err = h.userStore.UpdateUserLevel(c.UserContext(), id, params.NewLvl)
	if errors.Is(err, store.ErrNotFound) {
		return NewError(fiber.StatusNotFound, "Пользователь не найден или не удалось обновить уровень")
	}
	if err != nil {
		return err
	}
	return c.JSON(types.MessageResponse{Message: "Уровень пользователя успешно обновлен"})
}

func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return err
	}

	err = h.userStore.DeleteUser(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return NewError(fiber.StatusNotFound, "Пользователь не найден или не удалось удалить")
	}
	if err != nil {
		return err
	}
	return c.JSON(types.MessageResponse{Message: "Пользователь успешно удален"})
}
