package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DocumentExtractor turns a raw document into a stream of text fragments.
type DocumentExtractor interface {
	// ExtractText runs inside g and closes the returned channel when extraction
	// completes. contentType picks the parsing strategy.
	ExtractText(ctx context.Context, g *errgroup.Group, data []byte, contentType string) (<-chan string, error)
}
