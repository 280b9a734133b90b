package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bezbot/app/agent"
	"bezbot/quiz"
	"bezbot/retrieval"
	"bezbot/store"
)

func TestErrorHandlerMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"api error", NewError(fiber.StatusConflict, "conflict"), fiber.StatusConflict},
		{"validation", NewValidationError(map[string]string{"name": "required"}), fiber.StatusUnprocessableEntity},
		{"fiber error", fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed},
		{"store not found", fmt.Errorf("user 7: %w", store.ErrNotFound), fiber.StatusNotFound},
		{"module not found", quiz.ErrModuleNotFound, fiber.StatusNotFound},
		{"retrieval backend", fmt.Errorf("%w: embed", retrieval.ErrBackend), fiber.StatusServiceUnavailable},
		{"llm backend", fmt.Errorf("%w: timeout", agent.ErrBackend), fiber.StatusServiceUnavailable},
		{"empty query", retrieval.ErrEmptyQuery, fiber.StatusBadRequest},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestParseBody(t *testing.T) {
	type body struct {
		Status int               `json:"status"`
		Errors map[string]string `json:"errors"`
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/", NewUserHandler(nil).HandlePostUser)

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"role": "specialist"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var got body
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Contains(t, got.Errors, "name")

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestParamIntRejectsNonInteger(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/get_module/:module_id", NewModuleHandler(nil).HandleGetModule)

	resp, err := app.Test(httptest.NewRequest("GET", "/get_module/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}
