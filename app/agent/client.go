package agent

import (
	"context"
	"errors"
)

var (
	// ErrBackend — LLM недоступна или ответила ошибкой.
	ErrBackend = errors.New("llm backend unavailable")
	// ErrMalformedResponse — LLM вернула не тот формат, который от неё ждали.
	ErrMalformedResponse = errors.New("malformed llm response")
)

// Client генерирует ответ модели на промпт.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
