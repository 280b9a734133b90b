package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"bezbot/store"
)

type AnalyticsHandler struct {
	stats store.StatsStorer
}

func NewAnalyticsHandler(stats store.StatsStorer) *AnalyticsHandler {
	return &AnalyticsHandler{
		stats: stats,
	}
}

func (h *AnalyticsHandler) HandleGeneral(c *fiber.Ctx) error {
	stats, err := h.stats.GeneralStatistics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *AnalyticsHandler) HandleUser(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return err
	}

	stats, err := h.stats.UserStatistics(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return NewError(fiber.StatusNotFound, "Пользователь не найден")
	}
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *AnalyticsHandler) HandleMentor(c *fiber.Ctx) error {
	name := c.Params("mentor_name")

	stats, err := h.stats.MentorStatistics(c.UserContext(), name)
	if errors.Is(err, store.ErrNotFound) {
		return NewError(fiber.StatusNotFound, "Ментор не найден или нет данных")
	}
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
