package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bezbot/loader/internal"
	"bezbot/model"
	"bezbot/retrieval"
	"bezbot/types"
)

const defaultWorkers = 4

// ChunkWriter принимает готовый набор чанков с векторами (pgvector).
type ChunkWriter interface {
	ReplaceChunks(ctx context.Context, chunks []types.Chunk, vectors [][]float32) error
}

type Service struct {
	logger   *slog.Logger
	embedder model.Embedder
	model    string
	workers  int
	now      func() time.Time
}

func New(embedder model.Embedder, modelName string, workers int) *Service {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Service{
		logger:   slog.Default(),
		embedder: embedder,
		model:    modelName,
		workers:  workers,
		now:      time.Now,
	}
}

// Embed строит нормализованные векторы для всех чанков.
// Все векторы должны иметь одну размерность.
func (s *Service) Embed(ctx context.Context, chunks []types.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range chunks {
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, internal.EmbeddingText(chunks[i]))
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			vectors[i] = retrieval.Normalize(vec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: chunk %d has %d, expected %d", retrieval.ErrDimension, i, len(v), dim)
		}
	}
	return vectors, nil
}

// Build эмбеддит чанки и пишет векторное хранилище в outDir.
// Если pg не nil, тот же набор заменяет содержимое таблицы pgvector.
func (s *Service) Build(ctx context.Context, chunks []types.Chunk, outDir string, pg ChunkWriter) (retrieval.IndexInfo, error) {
	if len(chunks) == 0 {
		return retrieval.IndexInfo{}, internal.ErrNoChunks
	}

	start := s.now()
	s.logger.Info("building index", "chunks", len(chunks), "model", s.model, "workers", s.workers)

	vectors, err := s.Embed(ctx, chunks)
	if err != nil {
		return retrieval.IndexInfo{}, err
	}
	dim := len(vectors[0])

	flat := make([]float32, 0, dim*len(vectors))
	for _, v := range vectors {
		flat = append(flat, v...)
	}

	info := retrieval.IndexInfo{
		BuildID:        uuid.NewString(),
		EmbeddingModel: s.model,
		CreatedAt:      start.UTC().Format(time.RFC3339),
	}
	if err := retrieval.WriteFlatIndex(outDir, dim, flat, chunks, info); err != nil {
		return retrieval.IndexInfo{}, err
	}
	info.Dimension = dim
	info.TotalChunks = len(chunks)

	if pg != nil {
		if err := pg.ReplaceChunks(ctx, chunks, vectors); err != nil {
			return info, fmt.Errorf("pgvector: %w", err)
		}
		s.logger.Info("pgvector table updated", "chunks", len(chunks))
	}

	s.logger.Info("index built",
		"build_id", info.BuildID,
		"dir", outDir,
		"dim", dim,
		"chunks", len(chunks),
		"elapsed", time.Since(start),
	)
	return info, nil
}
