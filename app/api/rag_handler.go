package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"bezbot/types"
)

type Retrieval interface {
	Search(ctx context.Context, query string, topK int) ([]types.SearchResult, error)
	Answer(ctx context.Context, query string, topK, maxContextLength int) (types.Answer, error)
	Health() types.HealthResponse
}

type RAGHandler struct {
	retrieval Retrieval
}

func NewRAGHandler(r Retrieval) *RAGHandler {
	return &RAGHandler{
		retrieval: r,
	}
}

func (h *RAGHandler) HandleSearch(c *fiber.Ctx) error {
	params := types.NewSearchParams()
	if err := parseBody(c, &params); err != nil {
		return err
	}

	results, err := h.retrieval.Search(c.UserContext(), params.Query, params.TopK)
	if err != nil {
		return err
	}

	chunks := make([]types.ChunkResponse, len(results))
	for i, r := range results {
		chunks[i] = r.Response()
	}
	return c.JSON(types.SearchResponse{
		Query:        params.Query,
		TotalResults: len(chunks),
		Chunks:       chunks,
	})
}

func (h *RAGHandler) HandleAnswer(c *fiber.Ctx) error {
	params := types.NewAnswerParams()
	if err := parseBody(c, &params); err != nil {
		return err
	}

	answer, err := h.retrieval.Answer(c.UserContext(), params.Query, params.TopK, params.MaxContextLength)
	if err != nil {
		return err
	}
	return c.JSON(answer.Response())
}

func (h *RAGHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(h.retrieval.Health())
}
