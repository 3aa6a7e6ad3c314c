package ingestion_engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Assist/internal/models"
)

// embedAndPersist consumes chunks and stores each one as a knowledge entry.
// Chunks are embedded one at a time so only one embedding call is in flight.
func (i *DocumentIngestor) embedAndPersist(ctx context.Context, in <-chan chunk) (int, error) {
	saved := 0
	for c := range in {
		vec, err := i.embedder.Embed(ctx, c.Text)
		if err != nil {
			return saved, fmt.Errorf("embed chunk %d: %w", c.Pos, err)
		}

		entry := models.KnowledgeEntry{
			ID:        uuid.NewString(),
			Text:      c.Text,
			Vector:    vec,
			CreatedAt: time.Now().UTC(),
		}
		if err := i.store.Save(ctx, entry); err != nil {
			return saved, fmt.Errorf("save chunk %d: %w", c.Pos, err)
		}
		saved++
	}
	return saved, ctx.Err()
}
