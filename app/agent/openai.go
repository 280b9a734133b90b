package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"bezbot/metrics"
)

// OpenAI работает с любым OpenAI-совместимым chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
	system string
	logger *slog.Logger
}

func NewOpenAI(apiKey, baseURL, model, system string) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if system == "" {
		system = DefaultSystemPrompt
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		system: system,
		logger: slog.Default(),
	}
}

func (o *OpenAI) Generate(ctx context.Context, prompt string) (answer string, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveExternal("llm", start, err)
		o.logger.Debug("llm answer", "backend", "openai", "took", time.Since(start), "error", err)
	}()
	logPromptSize(o.logger, o.system+prompt)

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.system),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackend, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
