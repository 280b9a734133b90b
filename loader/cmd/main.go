package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"bezbot/config"
	"bezbot/loader/internal"
	"bezbot/loader/service"
	"bezbot/logger"
	"bezbot/model"
	"bezbot/retrieval"
	"bezbot/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "путь к env-файлу",
		Value: ".env",
	}

	app := &cli.Command{
		Name:  "loader",
		Usage: "сборка векторного хранилища для beZbot",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "эмбеддинг чанков и запись индекса",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "chunks",
						Usage:    "JSON или JSON Lines с чанками",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "каталог векторного хранилища (по умолчанию VECTOR_STORE_DIR)",
					},
					&cli.BoolFlag{
						Name:  "pgvector",
						Usage: "также заменить чанки в таблице pgvector",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "число параллельных запросов к эмбеддеру",
						Value: 4,
					},
				},
				Action: buildAction,
			},
			{
				Name:  "inspect",
				Usage: "показать описание индекса",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:  "dir",
						Usage: "каталог векторного хранилища (по умолчанию VECTOR_STORE_DIR)",
					},
				},
				Action: inspectAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("loader failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return nil, err
	}
	logger.New(cfg.LogLevel, "text")
	return cfg, nil
}

func buildAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.String("out")
	if out == "" {
		out = cfg.RAG.VectorStoreDir
	}

	chunks, err := internal.ReadChunks(cmd.String("chunks"))
	if err != nil {
		return err
	}

	var writer service.ChunkWriter
	if cmd.Bool("pgvector") {
		pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN())
		if err != nil {
			return err
		}
		defer pg.Close()

		chunkStore := store.NewChunkStore(pg)
		if err := chunkStore.Init(ctx); err != nil {
			return err
		}
		writer = chunkStore
	}

	embedder := model.NewOllamaEmbedder(cfg.Ollama.EmbeddingsURL(), cfg.Ollama.EmbeddingModel)
	svc := service.New(embedder, cfg.Ollama.EmbeddingModel, int(cmd.Int("workers")))

	info, err := svc.Build(ctx, chunks, out, writer)
	if err != nil {
		return err
	}
	return printJSON(info)
}

func inspectAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := cmd.String("dir")
	if dir == "" {
		dir = cfg.RAG.VectorStoreDir
	}

	idx, err := retrieval.LoadFlatIndex(dir)
	if err != nil {
		return err
	}
	info := idx.Info()
	info.Dimension = idx.Dim()
	info.TotalChunks = idx.Len()

	fmt.Println("index:", filepath.Join(dir, retrieval.IndexFile))
	return printJSON(info)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
