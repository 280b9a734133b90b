package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bezbot/app/agent"
	"bezbot/app/server"
	"bezbot/cache"
	"bezbot/config"
	"bezbot/logger"
	"bezbot/model"
	"bezbot/quiz"
	"bezbot/retrieval"
	"bezbot/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := flag.String("env", ".env", "path to env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN())
	if err != nil {
		return err
	}
	if err := pg.Init(ctx); err != nil {
		pg.Close()
		return err
	}
	closers := []io.Closer{pg}

	var embedder model.Embedder = model.NewOllamaEmbedder(cfg.Ollama.EmbeddingsURL(), cfg.Ollama.EmbeddingModel)
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			closeAll(closers)
			return err
		}
		closers = append(closers, rdb)
		embedder = cache.NewEmbedder(embedder, cache.NewRedisKV(rdb), cfg.Ollama.EmbeddingModel, cfg.Redis.TTL)
		slog.Info("embedding cache enabled", "addr", cfg.Redis.Addr)
	}

	index, err := openIndex(ctx, cfg, pg)
	if err != nil {
		closeAll(closers)
		return err
	}

	registry, err := quiz.LoadRegistry(cfg.Quiz.ContentDir)
	if err != nil {
		closeAll(closers)
		return err
	}
	quizStore := quiz.NewStore(cfg.Quiz.Path, registry, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))

	var llm agent.Client
	switch cfg.LLM.Provider {
	case "openai":
		llm = agent.NewOpenAI(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIBaseURL, cfg.LLM.Model, cfg.LLM.System)
	default:
		llm = agent.NewOllama(cfg.LLM.URL, cfg.LLM.Model, cfg.LLM.System)
	}

	retriever := retrieval.NewService(embedder, index, cfg.RAG.TopK)
	tutor := agent.NewTutor(llm, retriever, quizStore, cfg.RAG.TopK, cfg.RAG.MaxContextLength)

	srv := server.New(cfg, server.Deps{
		Tutor:     tutor,
		Quiz:      quizStore,
		Speech:    model.NewTranscriber(cfg.Speech.URL, cfg.Speech.Model),
		Retrieval: retriever,
		Users:     pg,
		Tests:     pg,
		Stats:     pg,
		Closers:   closers,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openIndex(ctx context.Context, cfg *config.Config, pg *store.PostgresStore) (retrieval.Index, error) {
	if cfg.RAG.IndexBackend == "pgvector" {
		chunks := store.NewChunkStore(pg)
		if err := chunks.Init(ctx); err != nil {
			return nil, err
		}
		slog.Info("pgvector index loaded", "chunks", chunks.Len(), "dim", chunks.Dim())
		return chunks, nil
	}

	idx, err := retrieval.LoadFlatIndex(cfg.RAG.VectorStoreDir)
	if err != nil {
		return nil, err
	}
	info := idx.Info()
	if info.EmbeddingModel != "" && info.EmbeddingModel != cfg.Ollama.EmbeddingModel {
		slog.Warn("index was built with another embedding model",
			"index_model", info.EmbeddingModel,
			"model", cfg.Ollama.EmbeddingModel,
		)
	}
	slog.Info("vector index loaded", "dir", cfg.RAG.VectorStoreDir, "chunks", idx.Len(), "dim", idx.Dim(), "build_id", info.BuildID)
	return idx, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}
