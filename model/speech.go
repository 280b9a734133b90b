package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"bezbot/metrics"
)

var ErrNoAudio = errors.New("no audio data")

const transcribeTimeout = 2 * time.Minute

// Transcriber отправляет аудио во внешний speech-to-text сервис
// (OpenAI-совместимый /v1/audio/transcriptions) и возвращает текст.
type Transcriber struct {
	apiURL string
	model  string
	client *http.Client
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func NewTranscriber(apiURL, model string) *Transcriber {
	return &Transcriber{
		apiURL: apiURL,
		model:  model,
		client: http.DefaultClient,
	}
}

func (t *Transcriber) Transcribe(ctx context.Context, filename string, audio []byte) (text string, err error) {
	if len(audio) == 0 {
		return "", ErrNoAudio
	}
	start := time.Now()
	defer func() { metrics.ObserveExternal("stt", start, err) }()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if t.model != "" {
		if err := w.WriteField("model", t.model); err != nil {
			return "", fmt.Errorf("failed to write model field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("speech API error: status %d, body: %s", resp.StatusCode, string(b))
	}

	var out transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return out.Text, nil
}
