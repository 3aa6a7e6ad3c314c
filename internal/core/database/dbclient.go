package db

import (
	"context"

	"github.com/markdave123-py/Assist/internal/core"
)

// DbClient is a knowledge store backed by a SQL database.
type DbClient interface {
	core.KnowledgeStore
	Ping(ctx context.Context) error
}
