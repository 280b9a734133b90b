package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bezbot/types"
)

type scriptedLLM struct {
	replies []string
	err     error
	prompts []string
}

func (s *scriptedLLM) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return reply, nil
}

type stubRetriever struct {
	answer  types.Answer
	err     error
	queries []string
}

func (s *stubRetriever) Answer(_ context.Context, query string, _, _ int) (types.Answer, error) {
	s.queries = append(s.queries, query)
	return s.answer, s.err
}

type stubModules map[int]string

func (s stubModules) ModuleNames() (map[int]string, error) { return s, nil }

func elevenModules() stubModules {
	m := stubModules{}
	for i := range 11 {
		m[i] = "m"
	}
	return m
}

func TestParseCalibration(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int
		message string
	}{
		{"plain", `{"skipped_modules": [2, 3], "reasoning": "знает структуру"}`, []int{2, 3}, "знает структуру"},
		{"fenced", "```json\n{\"skipped_modules\": [4]}\n```", []int{4}, "Анализ завершен"},
		{"drops calibration module", `{"skipped_modules": [0, 5, 0]}`, []int{5}, "Анализ завершен"},
		// 10 учебных модулей: при 7+ пропусках остаётся первые 6
		{"keeps at least four", `{"skipped_modules": [1,2,3,4,5,6,7,8]}`, []int{1, 2, 3, 4, 5, 6}, "Анализ завершен"},
		{"no modules", `{}`, []int{}, "Анализ завершен"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCalibration(tt.raw, 11)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.SkippedModules)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestParseCalibrationSmallCourse(t *testing.T) {
	got, err := ParseCalibration(`{"skipped_modules": [1, 2]}`, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{}, got.SkippedModules)
}

func TestParseCalibrationInvalidJSON(t *testing.T) {
	got, err := ParseCalibration("Сотрудник хорошо знает модули 2 и 3", 11)
	assert.Error(t, err)
	assert.Equal(t, []int{}, got.SkippedModules)
	assert.Equal(t, CalibrationFallbackMessage, got.Message)
}

func TestTutorAnalyzeCalibrationFallback(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"не JSON"}}
	tutor := NewTutor(llm, &stubRetriever{}, elevenModules(), 5, 2000)

	res, err := tutor.AnalyzeCalibration(context.Background(), map[string]string{"б": "2", "а": "1"})
	require.NoError(t, err)
	assert.Equal(t, []int{}, res.SkippedModules)
	assert.True(t, strings.HasPrefix(res.Message, "Рекомендуем пройти все модули"))
	assert.Contains(t, llm.prompts[0], "а: 1\nб: 2")
}

func TestTutorAnalyzeCalibrationBackendError(t *testing.T) {
	tutor := NewTutor(&scriptedLLM{err: ErrBackend}, &stubRetriever{}, elevenModules(), 5, 2000)
	_, err := tutor.AnalyzeCalibration(context.Background(), map[string]string{})
	assert.ErrorIs(t, err, ErrBackend)
}

func TestTutorAnswer(t *testing.T) {
	retriever := &stubRetriever{answer: types.Answer{
		Context:       "1. Общие\n\nтекст",
		NumChunksUsed: 1,
		Sources:       []types.Source{{DocumentName: "Инструкция", DocumentShortName: "ИОТ"}},
	}}
	llm := &scriptedLLM{replies: []string{"Ответ по документу"}}
	tutor := NewTutor(llm, retriever, elevenModules(), 5, 2000)

	resp, err := tutor.Answer(context.Background(), "Что такое ИОТ?")
	require.NoError(t, err)
	assert.Equal(t, "Ответ по документу", resp.Answer)
	assert.Len(t, resp.Metadata, 1)
	assert.Contains(t, llm.prompts[0], "1. Общие\n\nтекст")
	assert.Contains(t, llm.prompts[0], "Что такое ИОТ?")
}

func TestTutorAnswerEmptySources(t *testing.T) {
	tutor := NewTutor(&scriptedLLM{replies: []string{"нет данных"}}, &stubRetriever{}, elevenModules(), 5, 2000)
	resp, err := tutor.Answer(context.Background(), "?")
	require.NoError(t, err)
	assert.NotNil(t, resp.Metadata)
}

func TestTutorAnswerRetrievalError(t *testing.T) {
	boom := errors.New("retrieval down")
	tutor := NewTutor(&scriptedLLM{}, &stubRetriever{err: boom}, elevenModules(), 5, 2000)
	_, err := tutor.Answer(context.Background(), "?")
	assert.ErrorIs(t, err, boom)
}

func TestParseQuiz(t *testing.T) {
	raw := "Вот викторина:\n```json\n[{\"q\": \"Год основания?\", \"o\": [\"1950\", \"1960\"], \"c\": 1}]\n```"
	questions, err := ParseQuiz(raw)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "Год основания?", questions[0].Q)
	assert.Equal(t, 1, *questions[0].C)

	for _, bad := range []string{"нет json", "[]", `[{"q": "x", "o": ["a"], "c": 3}]`, `[{"q": }]`} {
		_, err := ParseQuiz(bad)
		assert.ErrorIs(t, err, ErrMalformedResponse, bad)
	}
}

func TestTutorGenerateQuiz(t *testing.T) {
	retriever := &stubRetriever{answer: types.Answer{Context: "контекст"}}
	llm := &scriptedLLM{replies: []string{
		"сломанный ответ",
		`[{"q": "Вопрос?", "o": ["a", "b"], "c": 0}]`,
	}}
	tutor := NewTutor(llm, retriever, stubModules{4: "Безопасность"}, 5, 2000)

	questions, err := tutor.GenerateQuiz(context.Background(), "4")
	require.NoError(t, err)
	assert.Len(t, questions, 1)
	assert.Equal(t, []string{"Безопасность"}, retriever.queries)
	assert.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "сломанный ответ")
}

func TestTutorGenerateQuizFreeTopic(t *testing.T) {
	retriever := &stubRetriever{}
	llm := &scriptedLLM{replies: []string{"всё ещё не json"}}
	tutor := NewTutor(llm, retriever, stubModules{}, 5, 2000)

	_, err := tutor.GenerateQuiz(context.Background(), "пожарная безопасность")
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, []string{"пожарная безопасность"}, retriever.queries)
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, DefaultSystemPrompt, req.System)
		w.Write([]byte(`{"response": "  готово  ", "done": true}`))
	}))
	defer srv.Close()

	out, err := NewOllama(srv.URL, "qwen", "").Generate(context.Background(), "привет")
	require.NoError(t, err)
	assert.Equal(t, "готово", out)
}

func TestOllamaGenerateStreamed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"response\":\"\"}\n{\"response\":\"при\"}\n{\"response\":\"вет\",\"done\":true}\n"))
	}))
	defer srv.Close()

	out, err := NewOllama(srv.URL, "qwen", "sys").Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "привет", out)
}

func TestOllamaGenerateBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "qwen", "").Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrBackend)

	_, err = NewOllama("http://127.0.0.1:1", "qwen", "").Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrBackend)
}

func TestFormatAnswersSorted(t *testing.T) {
	assert.Equal(t, "a: 1\nb: 2", FormatAnswers(map[string]string{"b": "2", "a": "1"}))
	assert.Equal(t, "", FormatAnswers(nil))
}
