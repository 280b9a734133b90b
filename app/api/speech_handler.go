package api

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"

	"bezbot/types"
)

type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

type SpeechHandler struct {
	transcriber Transcriber
}

func NewSpeechHandler(t Transcriber) *SpeechHandler {
	return &SpeechHandler{
		transcriber: t,
	}
}

func (h *SpeechHandler) HandleSpeechToText(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(map[string]string{"file": "required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return NewValidationError(map[string]string{"file": "empty"})
	}

	text, err := h.transcriber.Transcribe(c.UserContext(), fileHeader.Filename, data)
	if err != nil {
		return err
	}
	return c.JSON(types.SpeechResponse{Text: text})
}
