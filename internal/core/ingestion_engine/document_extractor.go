package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Assist/internal/core"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// ExtractText emits one trimmed, non-empty line per fragment. Plain text and
// markdown are split as-is; every other type goes through docconv.
func (e *DocconvExtractor) ExtractText(ctx context.Context, g *errgroup.Group, data []byte, contentType string) (<-chan string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	out := make(chan string, 32)

	g.Go(func() error {
		defer close(out)

		if isPlainText(contentType) {
			return emitLines(ctx, string(data), out)
		}
		res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
		if err != nil {
			return fmt.Errorf("docconv %s: %w", contentType, err)
		}
		return emitLines(ctx, res.Body, out)
	})

	return out, nil
}

func isPlainText(contentType string) bool {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return mt == "text/plain" || mt == "text/markdown"
}

func emitLines(ctx context.Context, text string, out chan<- string) error {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		select {
		case out <- line:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
