package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"bezbot/metrics"
	"bezbot/model"
	"bezbot/types"
)

// ErrBackend помечает отказ эмбеддера или индекса (HTTP 503).
var ErrBackend = errors.New("retrieval backend unavailable")

var ErrEmptyQuery = errors.New("query must not be empty")

// Index is a read-only nearest-neighbour index over normalised vectors.
type Index interface {
	Search(ctx context.Context, vec []float32, k int) ([]types.SearchResult, error)
	Len() int
	Dim() int
}

type Service struct {
	embedder model.Embedder
	index    Index
	topK     int
	logger   *slog.Logger
}

func NewService(embedder model.Embedder, index Index, topK int) *Service {
	if topK <= 0 {
		topK = types.DefaultTopK
	}
	return &Service{
		embedder: embedder,
		index:    index,
		topK:     topK,
		logger:   slog.Default(),
	}
}

// Search embeds the query and returns up to topK chunks ranked by distance.
// topK <= 0 falls back to the configured default.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.topK
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", ErrBackend, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrBackend)
	}

	results, err := s.index.Search(ctx, Normalize(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrBackend, err)
	}
	for i := range results {
		results[i].Rank = i + 1
		results[i].Score = Score(results[i].Distance)
	}
	metrics.RetrievalResults.Observe(float64(len(results)))
	s.logger.Debug("similarity search", "top_k", topK, "found", len(results))
	return results, nil
}

// Answer собирает контекст и источники для вопроса.
func (s *Service) Answer(ctx context.Context, query string, topK, maxContextLength int) (types.Answer, error) {
	if maxContextLength <= 0 {
		maxContextLength = types.DefaultMaxContextLength
	}
	results, err := s.Search(ctx, query, topK)
	if err != nil {
		return types.Answer{}, err
	}

	text, used := BuildContext(results, maxContextLength)
	return types.Answer{
		Query:          query,
		Context:        text,
		ContextLength:  utf8.RuneCountInString(text),
		NumChunksUsed:  used,
		Sources:        CollectSources(results[:used]),
		RelevantChunks: results,
	}, nil
}

func (s *Service) Health() types.HealthResponse {
	loaded := s.index != nil && s.index.Len() > 0
	resp := types.HealthResponse{
		Status:            "healthy",
		Message:           "Сервис работает нормально",
		AgentLoaded:       s.embedder != nil,
		VectorStoreLoaded: loaded,
	}
	if !resp.AgentLoaded || !loaded {
		resp.Status = "unhealthy"
		resp.Message = "Сервис не готов"
	}
	return resp
}
