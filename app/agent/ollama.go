package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bezbot/metrics"
)

const DefaultSystemPrompt = `Ты — корпоративный ассистент-наставник, отвечаешь только на русском языке.
Отвечай ясно и по существу, без вступлений вроде "Конечно!" или "Вот ответ:".
Если в контексте нет информации для ответа, так и скажи.`

const generateTimeout = 3 * time.Minute

type GenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type GenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Ollama ходит в /api/generate.
type Ollama struct {
	url    string
	model  string
	system string
	client *http.Client
	logger *slog.Logger
}

func NewOllama(url, model, system string) *Ollama {
	if system == "" {
		system = DefaultSystemPrompt
	}
	return &Ollama{
		url:    url,
		model:  model,
		system: system,
		client: http.DefaultClient,
		logger: slog.Default(),
	}
}

func (o *Ollama) Generate(ctx context.Context, prompt string) (answer string, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveExternal("llm", start, err)
		o.logger.Debug("llm answer", "backend", "ollama", "took", time.Since(start), "error", err)
	}()

	reqBody, err := json.Marshal(GenerateRequest{
		Model:  o.model,
		System: o.system,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	logPromptSize(o.logger, o.system+prompt)

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackend, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrBackend, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d, body: %s", ErrBackend, resp.StatusCode, string(body))
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err == nil && genResp.Response != "" {
		return strings.TrimSpace(genResp.Response), nil
	}

	// Потоковый ответ: соберём всё в строку
	var b strings.Builder
	decoder := json.NewDecoder(bytes.NewReader(body))
	for decoder.More() {
		var chunk GenerateResponse
		if err := decoder.Decode(&chunk); err != nil {
			return "", fmt.Errorf("%w: decode stream: %w", ErrMalformedResponse, err)
		}
		b.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	return strings.TrimSpace(b.String()), nil
}
