package ingestion_engine

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// streamChunk groups incoming fragments into token-bounded chunks with optional overlap.
//
// frags:          upstream fragments channel.
// targetTokens:   approximate tokens per chunk.
// overlapTokens:  tokens to retain from the end of the previous chunk as seed of the next.
// out:            receive-only channel of chunk structs with Pos/Text/TokenCnt.
func (i *DocumentIngestor) streamChunk(
	ctx context.Context,
	g *errgroup.Group,
	frags <-chan string,
	targetTokens int,
	overlapTokens int,
) <-chan chunk {
	out := make(chan chunk, 8)

	g.Go(func() error {
		defer close(out)

		var (
			buf    []string
			tokSum int
			pos    int
			fresh  bool // buf holds fragments not yet emitted
		)

		flush := func() error {
			if !fresh {
				return nil
			}
			ch := chunk{Pos: pos, Text: strings.Join(buf, "\n"), TokenCnt: tokSum}
			pos++

			select {
			case out <- ch:
			case <-ctx.Done():
				return ctx.Err()
			}

			buf, tokSum = overlapTail(buf, overlapTokens)
			fresh = false
			return nil
		}

		for frag := range frags {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			buf = append(buf, frag)
			tokSum += approxTokens(frag)
			fresh = true

			if tokSum >= targetTokens {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		// Emit remaining tail (if any).
		return flush()
	})

	return out
}

// overlapTail keeps the last fragments of buf whose tokens reach overlapTokens.
func overlapTail(buf []string, overlapTokens int) ([]string, int) {
	if overlapTokens <= 0 {
		return buf[:0], 0
	}
	start := len(buf)
	remain := overlapTokens
	for start > 0 && remain > 0 {
		start--
		remain -= approxTokens(buf[start])
	}
	// Never carry the whole buffer over, or every chunk would repeat.
	if start == 0 && len(buf) > 0 {
		start = 1
	}
	keep := append([]string(nil), buf[start:]...)
	sum := 0
	for _, s := range keep {
		sum += approxTokens(s)
	}
	return keep, sum
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
