package ingestion_engine

import (
	"context"

	"github.com/markdave123-py/Assist/internal/models"
)

type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(job models.IngestJob) error
	ProcessOne(ctx context.Context, job models.IngestJob) (int, error)
}
