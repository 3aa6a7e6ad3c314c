package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/markdave123-py/Assist/internal/api/handlers"
	"github.com/markdave123-py/Assist/internal/config"
	"github.com/markdave123-py/Assist/internal/core"
	db "github.com/markdave123-py/Assist/internal/core/database"
	"github.com/markdave123-py/Assist/internal/core/ingestion_engine"
	"github.com/markdave123-py/Assist/internal/core/llm"
	objectclient "github.com/markdave123-py/Assist/internal/core/object-client"
	"github.com/markdave123-py/Assist/internal/core/retrieval"
	"github.com/markdave123-py/Assist/internal/core/stream"
	"github.com/markdave123-py/Assist/internal/services"
)

type App struct {
	Store     db.DbClient
	Assistant *services.AssistantService
	Ingestor  ingestion_engine.Ingestor // nil without BUCKET_NAME
	Server    *Server

	closers []io.Closer
	log     *slog.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{log: log}

	store, err := openStore(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store)
	log.Info("knowledge store initialized and ready", "driver", cfg.StoreDriver)

	model, embedder, err := a.openBackend(appCtx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Info("model backend initialized", "backend", cfg.Backend, "text_model", cfg.TextModel, "embed_model", cfg.EmbedModel)

	augmenter := retrieval.NewAugmenter(store, log)
	augmenter.DegradeOnError = cfg.DegradeOnSearchError

	opts := services.Options{
		StreamTimeout:        cfg.StreamTimeout,
		TolerateStreamErrors: cfg.TolerateStreamErrors,
	}
	if cfg.StreamEcho {
		opts.Sink = stream.WriterSink(os.Stdout)
	}
	a.Assistant = services.NewAssistantService(model, embedder, store, augmenter, opts, log)

	var queue handlers.Enqueuer
	if cfg.BucketName != "" {
		awsCfg, err := cfg.AWSConfig(appCtx)
		if err != nil {
			a.Close()
			return nil, err
		}
		objClient := objectclient.NewS3Client(awsCfg, log)
		log.Info("object client initialized and ready", "bucket", cfg.BucketName)

		useReadability := false
		ing := ingestion_engine.NewDocumentIngestor(store, objClient, embedder,
			ingestion_engine.NewDocconvExtractor(useReadability),
			ingestion_engine.IngestConfig{TargetTokens: 200, OverlapTokens: 20},
			log)
		a.Ingestor = ing
		queue = ing
	}

	a.Server = NewServer(cfg, a.Assistant, queue, store, log)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (db.DbClient, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return db.NewDatabaseClient(ctx, cfg)
	case config.DriverSQLite:
		return db.NewSQLiteClient(ctx, cfg.SQLitePath, cfg.SearchLimit, cfg.EmbedDim)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (a *App) openBackend(ctx context.Context, cfg *config.Config) (core.ModelClient, core.EmbeddingClient, error) {
	switch cfg.Backend {
	case config.BackendBedrock:
		awsCfg, err := cfg.AWSConfig(ctx)
		if err != nil {
			return nil, nil, err
		}
		return llm.NewBedrockLLM(awsCfg, cfg.TextModel, a.log), llm.NewBedrockEmbedder(awsCfg, cfg.EmbedModel), nil

	case config.BackendGemini:
		embedder, err := llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
		}
		a.closers = append(a.closers, embedder)

		model, err := llm.NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.TextModel)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't initialize the text model, %w", err)
		}
		a.closers = append(a.closers, model)
		return model, embedder, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
