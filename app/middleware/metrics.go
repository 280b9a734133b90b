package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"bezbot/metrics"
)

// Metrics считает запросы и их длительность по шаблону маршрута.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		method := c.Method()

		handleError(c, c.Next())

		path := c.Route().Path
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(c.Response().StatusCode())

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return nil
	}
}

// handleError отдаёт ошибку цепочки в ErrorHandler приложения,
// чтобы статус ответа был известен до записи метрик и лога.
func handleError(c *fiber.Ctx, err error) {
	if err == nil {
		return
	}
	if herr := c.App().ErrorHandler(c, err); herr != nil {
		_ = c.SendStatus(fiber.StatusInternalServerError)
	}
}
