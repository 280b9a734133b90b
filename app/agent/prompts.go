package agent

import (
	"fmt"
	"sort"
	"strings"
)

const chatTemplate = `Ответь на вопрос сотрудника, опираясь только на приведённый контекст из внутренних документов.
Если в контексте нет нужной информации, ответь: "По этому вопросу в документах нет информации."

Контекст:
%s

Вопрос:
%s

Ответ:`

const calibrationTemplate = `Ты анализируешь результаты калибровочного теста нового сотрудника.
Курс состоит из модулей:
%s

Ответы сотрудника (вопрос: ответ):
%s

Определи, какие модули сотрудник уже знает достаточно хорошо и может пропустить.
Верни ТОЛЬКО JSON без пояснений и markdown:
{"skipped_modules": [номера модулей], "reasoning": "краткое объяснение на русском"}`

const quizTemplate = `Составь проверочную викторину из 5 вопросов по приведённому контексту.
У каждого вопроса 4 варианта ответа, ровно один правильный.
Верни ТОЛЬКО JSON-массив без пояснений и markdown в формате:
[{"q": "текст вопроса", "o": ["вариант 1", "вариант 2", "вариант 3", "вариант 4"], "c": индекс правильного варианта с нуля}]

Контекст:
%s`

const repairTemplate = `Ранее ты вернул некорректный JSON.
Исправь его: верни ТОЛЬКО валидный JSON, ничего не добавляя и не удаляя, без пояснений и markdown.

НЕКОРРЕКТНЫЙ ВЫВОД:
<<<
%s
>>>`

const emptyContext = "контекст пуст"

func ChatPrompt(context, question string) string {
	if strings.TrimSpace(context) == "" {
		context = emptyContext
	}
	return fmt.Sprintf(chatTemplate, context, question)
}

func CalibrationPrompt(modules map[int]string, answers map[string]string) string {
	return fmt.Sprintf(calibrationTemplate, formatModules(modules), FormatAnswers(answers))
}

func QuizPrompt(context string) string {
	if strings.TrimSpace(context) == "" {
		context = emptyContext
	}
	return fmt.Sprintf(quizTemplate, context)
}

func repairPrompt(bad string) string {
	return fmt.Sprintf(repairTemplate, bad)
}

// FormatAnswers renders answers as "question: answer" lines sorted by question.
func FormatAnswers(answers map[string]string) string {
	questions := make([]string, 0, len(answers))
	for q := range answers {
		questions = append(questions, q)
	}
	sort.Strings(questions)

	var b strings.Builder
	for i, q := range questions {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", q, answers[q])
	}
	return b.String()
}

func formatModules(modules map[int]string) string {
	ids := make([]int, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%d. %s\n", id, modules[id])
	}
	return strings.TrimRight(b.String(), "\n")
}
