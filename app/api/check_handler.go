package api

import (
	"github.com/gofiber/fiber/v2"
)

type CheckHandler struct{}

func NewCheckHandler() *CheckHandler {
	return &CheckHandler{}
}

func (h CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

func (h CheckHandler) HandleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "beZbot API",
		"version": "1.0.0",
		"endpoints": fiber.Map{
			"/health":              "Проверка здоровья сервиса",
			"/search":              "Поиск релевантных чанков (POST)",
			"/answer":              "Получение ответа с контекстом (POST)",
			"/get_answer":          "Ответ ассистента на вопрос (POST)",
			"/get_module/{id}":     "Вопросы модуля (GET)",
			"/get_quiz":            "Генерация викторины (POST)",
			"/speech_to_text":      "Распознавание речи (POST, multipart)",
			"/analyze_calibration": "Анализ калибровочного теста (POST)",
			"/update_module":       "Обновление вопросов модуля (POST)",
			"/db":                  "Пользователи, тесты и аналитика",
		},
	})
}
