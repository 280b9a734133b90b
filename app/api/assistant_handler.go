package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"bezbot/types"
)

type Tutor interface {
	Answer(ctx context.Context, question string) (types.AnswerResponse, error)
	AnalyzeCalibration(ctx context.Context, answers map[string]string) (types.CalibrationResult, error)
	GenerateQuiz(ctx context.Context, id string) ([]types.Question, error)
}

type AssistantHandler struct {
	tutor Tutor
}

func NewAssistantHandler(tutor Tutor) *AssistantHandler {
	return &AssistantHandler{
		tutor: tutor,
	}
}

func (h *AssistantHandler) HandleGetAnswer(c *fiber.Ctx) error {
	var params types.QuestionParams
	if err := parseBody(c, &params); err != nil {
		return err
	}

	resp, err := h.tutor.Answer(c.UserContext(), params.Question)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *AssistantHandler) HandleGetQuiz(c *fiber.Ctx) error {
	var params types.QuizParams
	if err := parseBody(c, &params); err != nil {
		return err
	}

	questions, err := h.tutor.GenerateQuiz(c.UserContext(), params.ID)
	if err != nil {
		return err
	}
	return c.JSON(types.QuizResponse{Quiz: questions})
}

func (h *AssistantHandler) HandleAnalyzeCalibration(c *fiber.Ctx) error {
	var params types.CalibrationParams
	if err := parseBody(c, &params); err != nil {
		return err
	}

	result, err := h.tutor.AnalyzeCalibration(c.UserContext(), params.Answers)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
