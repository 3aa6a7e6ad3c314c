package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Assist/internal/core"
	"github.com/markdave123-py/Assist/internal/models"
)

// ErrQueueFull is returned by Enqueue when the job queue has no room.
var ErrQueueFull = errors.New("ingestion queue is full")

const jobTimeout = 5 * time.Minute

// NewDocumentIngestor constructs the ingestor with a bounded job queue (default 64).
func NewDocumentIngestor(store core.KnowledgeStore, obj core.ObjectClient, emb core.EmbeddingClient, extractor core.DocumentExtractor, cfg IngestConfig, log *slog.Logger) *DocumentIngestor {
	if cfg.TargetTokens <= 0 {
		cfg.TargetTokens = 200
	}
	if cfg.OverlapTokens < 0 || cfg.OverlapTokens >= cfg.TargetTokens {
		cfg.OverlapTokens = 0
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if log == nil {
		log = slog.Default()
	}
	return &DocumentIngestor{
		store: store, obj: obj, embedder: emb, extractor: extractor, cfg: cfg, log: log,
		jobs: make(chan models.IngestJob, cfg.QueueSize),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel until ctx is done.
func (i *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					i.log.Info("ingest worker shutting down", "worker", w)
					return
				case job := <-i.jobs:
					log := i.log.With("job_id", job.ID, "bucket", job.Bucket, "key", job.Key, "worker", w)
					log.Info("ingesting document")

					n, err := i.ProcessOne(ctx, job)
					if err != nil {
						log.Error("ingestion failed", "error", err, "entries", n)
						continue
					}
					log.Info("ingestion finished", "entries", n)
				}
			}
		}(w)
	}
}

// Enqueue schedules a job without blocking the caller.
func (i *DocumentIngestor) Enqueue(job models.IngestJob) error {
	select {
	case i.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// ProcessOne fetches, extracts, chunks, embeds and stores one document. It
// returns the number of knowledge entries saved, also on failure.
func (i *DocumentIngestor) ProcessOne(ctx context.Context, job models.IngestJob) (int, error) {
	proctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	data, err := i.obj.GetFile(proctx, job.Bucket, job.Key)
	if err != nil {
		return 0, fmt.Errorf("get object: %w", err)
	}

	// Build an errgroup to tie the pipeline stages together.
	g, gctx := errgroup.WithContext(proctx)

	// extract documents -> fragments (receive-only channel).
	fragCh, err := i.extractor.ExtractText(gctx, g, data, job.ContentType)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}

	// fragments -> chunks (receive-only channel).
	chunkCh := i.streamChunk(gctx, g, fragCh, i.cfg.TargetTokens, i.cfg.OverlapTokens)

	// chunks -> embed + persist.
	var saved int
	g.Go(func() error {
		var err error
		saved, err = i.embedAndPersist(gctx, chunkCh)
		return err
	})

	// Wait for all stages. Any error cancels the rest.
	if err := g.Wait(); err != nil {
		return saved, err
	}
	return saved, nil
}
