package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"bezbot/quiz"
	"bezbot/types"
)

const (
	CalibrationFallbackMessage = "Рекомендуем пройти все модули для полноценного обучения"
	calibrationDefaultReason   = "Анализ завершен"

	quizAttempts = 2
)

// Retriever отдаёт контекст и источники под вопрос.
type Retriever interface {
	Answer(ctx context.Context, query string, topK, maxContextLength int) (types.Answer, error)
}

// ModuleNamer отдаёт названия модулей курса.
type ModuleNamer interface {
	ModuleNames() (map[int]string, error)
}

// Tutor — сервис чата, калибровки и генерации викторин поверх LLM.
type Tutor struct {
	llm              Client
	retriever        Retriever
	modules          ModuleNamer
	topK             int
	maxContextLength int
	logger           *slog.Logger
}

func NewTutor(llm Client, retriever Retriever, modules ModuleNamer, topK, maxContextLength int) *Tutor {
	return &Tutor{
		llm:              llm,
		retriever:        retriever,
		modules:          modules,
		topK:             topK,
		maxContextLength: maxContextLength,
		logger:           slog.Default(),
	}
}

// Answer отвечает на вопрос по контексту из документов.
// metadata ответа — источники, попавшие в контекст.
func (t *Tutor) Answer(ctx context.Context, question string) (types.AnswerResponse, error) {
	found, err := t.retriever.Answer(ctx, question, t.topK, t.maxContextLength)
	if err != nil {
		return types.AnswerResponse{}, err
	}

	answer, err := t.llm.Generate(ctx, ChatPrompt(found.Context, question))
	if err != nil {
		return types.AnswerResponse{}, err
	}

	sources := found.Sources
	if sources == nil {
		sources = []types.Source{}
	}
	t.logger.Info("question answered", "chunks_used", found.NumChunksUsed, "sources", len(sources))
	return types.AnswerResponse{Answer: answer, Metadata: sources}, nil
}

// AnalyzeCalibration просит LLM выбрать модули, которые можно пропустить.
// Невалидный JSON от модели не ошибка: возвращается пустой список.
func (t *Tutor) AnalyzeCalibration(ctx context.Context, answers map[string]string) (types.CalibrationResult, error) {
	names, err := t.modules.ModuleNames()
	if err != nil {
		return types.CalibrationResult{}, err
	}

	raw, err := t.llm.Generate(ctx, CalibrationPrompt(names, answers))
	if err != nil {
		return types.CalibrationResult{}, err
	}

	result, err := ParseCalibration(raw, len(names))
	if err != nil {
		t.logger.Warn("failed to parse calibration response", "response", raw, "error", err)
	} else {
		t.logger.Info("calibration analysed", "skipped_modules", result.SkippedModules, "reasoning", result.Message)
	}
	return result, nil
}

type calibrationResponse struct {
	SkippedModules []int   `json:"skipped_modules"`
	Reasoning      *string `json:"reasoning"`
}

// ParseCalibration applies the skip rules to a raw LLM answer. moduleCount
// includes the calibration module itself. At least four modules are always
// left to study and module 0 is never skipped. On a parse error the fallback
// result is returned together with the error.
func ParseCalibration(raw string, moduleCount int) (types.CalibrationResult, error) {
	var resp calibrationResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		return types.CalibrationResult{SkippedModules: []int{}, Message: CalibrationFallbackMessage}, err
	}

	skipped := resp.SkippedModules
	total := moduleCount - 1
	if len(skipped) >= total-3 {
		keep := min(max(total-4, 0), len(skipped))
		skipped = skipped[:keep]
	}

	out := make([]int, 0, len(skipped))
	for _, id := range skipped {
		if id != types.CalibrationModuleID {
			out = append(out, id)
		}
	}

	message := calibrationDefaultReason
	if resp.Reasoning != nil {
		message = *resp.Reasoning
	}
	return types.CalibrationResult{SkippedModules: out, Message: message}, nil
}

// GenerateQuiz составляет викторину по теме. id — номер модуля или
// произвольная тема; контекст берётся из документов.
func (t *Tutor) GenerateQuiz(ctx context.Context, id string) ([]types.Question, error) {
	topic := strings.TrimSpace(id)
	if moduleID, err := strconv.Atoi(topic); err == nil {
		names, err := t.modules.ModuleNames()
		if err != nil {
			return nil, err
		}
		topic = moduleNameOrID(names, moduleID, topic)
	}

	found, err := t.retriever.Answer(ctx, topic, t.topK, t.maxContextLength)
	if err != nil {
		return nil, err
	}

	prompt := QuizPrompt(found.Context)
	var lastErr error
	for attempt := 1; attempt <= quizAttempts; attempt++ {
		raw, err := t.llm.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}
		questions, err := ParseQuiz(raw)
		if err == nil {
			return questions, nil
		}
		lastErr = err
		t.logger.Warn("quiz response is not valid json", "attempt", attempt, "error", err)
		prompt = repairPrompt(raw)
	}
	return nil, fmt.Errorf("quiz generation failed after %d attempts: %w", quizAttempts, lastErr)
}

// ParseQuiz extracts the question array from an LLM answer.
func ParseQuiz(raw string) ([]types.Question, error) {
	fragment, err := extractJSON(stripFences(raw), '[', ']')
	if err != nil {
		return nil, err
	}
	var questions []types.Question
	if err := json.Unmarshal([]byte(fragment), &questions); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: empty quiz", ErrMalformedResponse)
	}
	for i, q := range questions {
		if q.Q == "" || len(q.O) == 0 {
			return nil, fmt.Errorf("%w: question %d has no text or options", ErrMalformedResponse, i)
		}
		if q.C != nil && (*q.C < 0 || *q.C >= len(q.O)) {
			return nil, fmt.Errorf("%w: question %d answer index %d out of range", ErrMalformedResponse, i, *q.C)
		}
	}
	return questions, nil
}

func moduleNameOrID(names map[int]string, id int, fallback string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	if name, ok := quiz.DefaultModuleNames[id]; ok {
		return name
	}
	return fallback
}
