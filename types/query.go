package types

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// ошибки отдаём по именам json-полей, как их видит клиент
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func validateStruct(params any) map[string]string {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"request": err.Error()}
	}
	errors := make(map[string]string, len(errs))
	for _, e := range errs {
		errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
	}
	return errors
}

type QuestionParams struct {
	Question string `json:"question" validate:"required"`
}

func (params *QuestionParams) Validate() map[string]string {
	return validateStruct(params)
}

type QuizParams struct {
	ID string `json:"id" validate:"required"`
}

func (params *QuizParams) Validate() map[string]string {
	return validateStruct(params)
}

type CalibrationParams struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

func (params *CalibrationParams) Validate() map[string]string {
	return validateStruct(params)
}

type UpdateModuleParams struct {
	ModuleID   int     `json:"module_id" validate:"min=0"`
	ModuleName *string `json:"module_name,omitempty"`
}

// NewUpdateModuleParams returns params pre-filled with the defaults
// applied when the body omits a field.
func NewUpdateModuleParams() UpdateModuleParams {
	return UpdateModuleParams{ModuleID: VersionedModuleID}
}

func (params *UpdateModuleParams) Validate() map[string]string {
	return validateStruct(params)
}

const (
	DefaultTopK             = 5
	DefaultMaxContextLength = 2000
)

type SearchParams struct {
	Query string `json:"query" validate:"required,min=1"`
	TopK  int    `json:"top_k" validate:"min=1,max=20"`
}

func NewSearchParams() SearchParams {
	return SearchParams{TopK: DefaultTopK}
}

func (params *SearchParams) Validate() map[string]string {
	return validateStruct(params)
}

type AnswerParams struct {
	Query            string `json:"query" validate:"required,min=1"`
	TopK             int    `json:"top_k" validate:"min=1,max=20"`
	MaxContextLength int    `json:"max_context_length" validate:"min=100,max=10000"`
}

func NewAnswerParams() AnswerParams {
	return AnswerParams{TopK: DefaultTopK, MaxContextLength: DefaultMaxContextLength}
}

func (params *AnswerParams) Validate() map[string]string {
	return validateStruct(params)
}

type CreateUserParams struct {
	Name   string  `json:"name" validate:"required,max=100"`
	Role   string  `json:"role" validate:"required,max=50"`
	Mentor *string `json:"mentor" validate:"omitempty,max=100"`
	Lvl    *string `json:"lvl"`
}

func (params *CreateUserParams) Validate() map[string]string {
	return validateStruct(params)
}

type UpdateLevelParams struct {
	NewLvl string `json:"new_lvl" validate:"required"`
}

func (params *UpdateLevelParams) Validate() map[string]string {
	return validateStruct(params)
}

type CreateTestParams struct {
	UserID   int `json:"user_id" validate:"required"`
	ModuleID int `json:"module_id" validate:"min=0"`
	Corrects int `json:"corrects" validate:"min=0"`
}

func (params *CreateTestParams) Validate() map[string]string {
	return validateStruct(params)
}

type AnswerResponse struct {
	Answer   string   `json:"answer"`
	Metadata []Source `json:"metadata"`
}

type ModuleResponse struct {
	ModuleID       int        `json:"module_id"`
	ModuleName     string     `json:"module_name"`
	Questions      []Question `json:"questions"`
	TotalQuestions int        `json:"total_questions"`
}

type QuizResponse struct {
	Quiz []Question `json:"quiz"`
}

type SpeechResponse struct {
	Text string `json:"text"`
}

type CalibrationResult struct {
	SkippedModules []int  `json:"skipped_modules"`
	Message        string `json:"message"`
}

type UpdateModuleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type CreatedResponse struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ChunkResponse struct {
	Rank              int     `json:"rank"`
	Score             float64 `json:"score"`
	Distance          float64 `json:"distance"`
	DocumentName      *string `json:"document_name"`
	DocumentShortName *string `json:"document_short_name"`
	DocumentSource    *string `json:"document_source"`
	DocumentNumber    *string `json:"document_number"`
	DocumentDate      *string `json:"document_date"`
	ParagraphName     *string `json:"paragraph_name"`
	ParagraphNumber   *int    `json:"paragraph_number"`
	PageNumber        *int    `json:"page_number"`
	Text              string  `json:"text"`
	TextLength        int     `json:"text_length"`
}

type SearchResponse struct {
	Query        string          `json:"query"`
	TotalResults int             `json:"total_results"`
	Chunks       []ChunkResponse `json:"chunks"`
}

type RAGAnswerResponse struct {
	Query          string          `json:"query"`
	Context        string          `json:"context"`
	ContextLength  int             `json:"context_length"`
	NumChunksUsed  int             `json:"num_chunks_used"`
	Sources        []Source        `json:"sources"`
	RelevantChunks []ChunkResponse `json:"relevant_chunks"`
}

type HealthResponse struct {
	Status            string `json:"status"`
	Message           string `json:"message"`
	AgentLoaded       bool   `json:"agent_loaded"`
	VectorStoreLoaded bool   `json:"vector_store_loaded"`
}
