// Package retrieval fetches ranked knowledge for a query vector.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/markdave123-py/Assist/internal/core"
	"github.com/markdave123-py/Assist/internal/models"
)

// Context is the ranked sequence of fragment texts for one request.
type Context []string

// Augmenter delegates ranking to the store and keeps its order.
type Augmenter struct {
	store core.KnowledgeStore
	log   *slog.Logger

	// DegradeOnError turns a search failure into an empty context instead of
	// failing the request.
	DegradeOnError bool
}

func NewAugmenter(store core.KnowledgeStore, log *slog.Logger) *Augmenter {
	if log == nil {
		log = slog.Default()
	}
	return &Augmenter{store: store, log: log}
}

// Augment returns the text of every entry ranked for vector, in ranking order.
// An empty ranking yields an empty Context and no error.
func (a *Augmenter) Augment(ctx context.Context, vector models.Vector) (Context, error) {
	entries, err := a.store.Query(ctx, vector)
	if err != nil {
		if a.DegradeOnError && ctx.Err() == nil {
			a.log.Warn("knowledge search failed; answering without context", "error", err)
			return Context{}, nil
		}
		return nil, core.NewError(core.ErrStore, "retrieval.augment", err)
	}

	out := make(Context, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Text)
	}
	return out, nil
}
