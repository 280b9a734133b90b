package store

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"bezbot/types"
)

// ChunkStore держит чанки с эмбеддингами в pgvector и реализует
// тот же поиск, что и плоский индекс: квадрат L2-расстояния по возрастанию.
type ChunkStore struct {
	pool  *pgxpool.Pool
	count atomic.Int64
	dim   atomic.Int64
}

func NewChunkStore(p *PostgresStore) *ChunkStore {
	return &ChunkStore{pool: p.pool}
}

func (s *ChunkStore) Init(ctx context.Context) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS rag_chunks (
		id INT PRIMARY KEY,
		text TEXT NOT NULL,
		document_name TEXT,
		document_short_name TEXT,
		document_source TEXT,
		document_number TEXT,
		document_date TEXT,
		paragraph_name TEXT,
		paragraph_number INT,
		page_number INT,
		embedding vector NOT NULL
	);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Refresh перечитывает количество чанков и размерность векторов.
func (s *ChunkStore) Refresh(ctx context.Context) error {
	var count, dim int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*), COALESCE(MAX(vector_dims(embedding)), 0) FROM rag_chunks",
	).Scan(&count, &dim)
	if err != nil {
		return err
	}
	s.count.Store(count)
	s.dim.Store(dim)
	return nil
}

func (s *ChunkStore) Len() int { return int(s.count.Load()) }
func (s *ChunkStore) Dim() int { return int(s.dim.Load()) }

func (s *ChunkStore) Search(ctx context.Context, vec []float32, k int) ([]types.SearchResult, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("пустой вектор запроса")
	}

	query := `
		SELECT id, text,
			COALESCE(document_name, ''), COALESCE(document_short_name, ''), COALESCE(document_source, ''),
			COALESCE(document_number, ''), COALESCE(document_date, ''), COALESCE(paragraph_name, ''),
			paragraph_number, page_number,
			(embedding <-> $1) ^ 2 AS distance
		FROM rag_chunks
		ORDER BY embedding <-> $1, id
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.SearchResult, error) {
		var r types.SearchResult
		err := row.Scan(
			&r.ID,
			&r.Text,
			&r.DocumentName,
			&r.DocumentShortName,
			&r.DocumentSource,
			&r.DocumentNumber,
			&r.DocumentDate,
			&r.ParagraphName,
			&r.ParagraphNumber,
			&r.PageNumber,
			&r.Distance,
		)
		return r, err
	})
}

// ReplaceChunks заменяет содержимое таблицы новым набором в одной транзакции.
// vectors[i] соответствует chunks[i], id чанка = его позиция.
func (s *ChunkStore) ReplaceChunks(ctx context.Context, chunks []types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%d chunks but %d vectors", len(chunks), len(vectors))
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM rag_chunks"); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, c := range chunks {
			batch.Queue(`
				INSERT INTO rag_chunks (id, text, document_name, document_short_name, document_source,
					document_number, document_date, paragraph_name, paragraph_number, page_number, embedding)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				i, c.Text,
				types.Optional(c.DocumentName), types.Optional(c.DocumentShortName), types.Optional(c.DocumentSource),
				types.Optional(c.DocumentNumber), types.Optional(c.DocumentDate), types.Optional(c.ParagraphName),
				c.ParagraphNumber, c.PageNumber,
				pgvector.NewVector(vectors[i]),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return err
	}
	return s.Refresh(ctx)
}
