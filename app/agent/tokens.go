package agent

import (
	"context"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

// CountTokens оценивает размер промпта в токенах (cl100k_base).
func CountTokens(text string) (int, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("cl100k_base")
	})
	if encErr != nil {
		return 0, encErr
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func logPromptSize(logger *slog.Logger, prompt string) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	tokens, err := CountTokens(prompt)
	if err != nil {
		logger.Debug("token count unavailable", "error", err)
		tokens = -1
	}
	logger.Debug("prompt size", "tokens", tokens, "chars", utf8.RuneCountInString(prompt))
}
