package api

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"bezbot/types"
)

type QuizStore interface {
	Module(id int) (types.ModuleResponse, error)
	Update(moduleID int, providerName string) error
}

type ModuleHandler struct {
	quiz QuizStore
}

func NewModuleHandler(quiz QuizStore) *ModuleHandler {
	return &ModuleHandler{
		quiz: quiz,
	}
}

func (h *ModuleHandler) HandleGetModule(c *fiber.Ctx) error {
	id, err := paramInt(c, "module_id")
	if err != nil {
		return err
	}

	module, err := h.quiz.Module(id)
	if err != nil {
		return err
	}
	return c.JSON(module)
}

// HandleUpdateModule отвечает 200 и при неудаче: {success: false}.
func (h *ModuleHandler) HandleUpdateModule(c *fiber.Ctx) error {
	params := types.NewUpdateModuleParams()
	if err := parseBody(c, &params); err != nil {
		return err
	}

	var provider string
	if params.ModuleName != nil {
		provider = *params.ModuleName
	}

	if err := h.quiz.Update(params.ModuleID, provider); err != nil {
		slog.Error("module update failed", "module_id", params.ModuleID, "provider", provider, "error", err)
		return c.JSON(types.UpdateModuleResponse{
			Success: false,
			Message: fmt.Sprintf("Ошибка при обновлении модуля %d", params.ModuleID),
		})
	}
	return c.JSON(types.UpdateModuleResponse{
		Success: true,
		Message: fmt.Sprintf("Модуль %d успешно обновлён", params.ModuleID),
	})
}
