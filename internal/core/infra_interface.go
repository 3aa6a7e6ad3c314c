package core

import (
	"context"
	"io"

	"github.com/markdave123-py/Assist/internal/models"
)

// KnowledgeStore persists knowledge entries and ranks them against a query vector.
// Ranking count and similarity metric are decided by the implementation.
type KnowledgeStore interface {
	Save(ctx context.Context, entry models.KnowledgeEntry) error
	Query(ctx context.Context, vector models.Vector) ([]models.KnowledgeEntry, error)
	Close() error
}

// ObjectClient reads source documents from S3 or any object storage.
type ObjectClient interface {
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
