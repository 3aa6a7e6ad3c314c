// Package stream folds a chunked model response into one completion.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/markdave123-py/Assist/internal/core"
	"github.com/markdave123-py/Assist/internal/models"
)

// Sink receives every delta as soon as it is accumulated.
type Sink func(delta string) error

// Discard drops every delta.
func Discard(string) error { return nil }

// WriterSink forwards deltas to w, e.g. a console or a flushed HTTP response.
func WriterSink(w io.Writer) Sink {
	return func(delta string) error {
		_, err := io.WriteString(w, delta)
		return err
	}
}

// Aggregator accumulates the deltas of a single streaming request.
// It must not be reused across requests.
type Aggregator struct {
	mu           sync.Mutex
	buf          strings.Builder
	chunks       int
	sinkFailures int

	sink Sink
	log  *slog.Logger
}

// NewAggregator returns an aggregator forwarding to sink; a nil sink disables
// live forwarding.
func NewAggregator(sink Sink, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{sink: sink, log: log}
}

// Append adds delta to the accumulated text.
func (a *Aggregator) Append(delta string) {
	a.mu.Lock()
	a.buf.WriteString(delta)
	a.chunks++
	a.mu.Unlock()
}

// Text returns everything accumulated so far.
func (a *Aggregator) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.String()
}

// Chunks reports how many deltas have been applied.
func (a *Aggregator) Chunks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chunks
}

// SinkFailures reports how many forwards failed or panicked.
func (a *Aggregator) SinkFailures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sinkFailures
}

// Consume drains chunks until the channel closes, a chunk carries an error, or
// ctx ends.
//
// On a mid-stream error the completion holds the partial text and the returned
// error wraps core.ErrStream with the same text in Partial. On timeout or
// cancellation the partial text is discarded.
func (a *Aggregator) Consume(ctx context.Context, chunks <-chan core.Chunk) (models.Completion, error) {
	for {
		select {
		case <-ctx.Done():
			return models.Completion{}, a.interrupted(ctx.Err())
		case c, ok := <-chunks:
			// Producers close or fail their stream once ctx ends; that is
			// still an interruption, not a finished completion.
			if err := ctx.Err(); err != nil && (!ok || c.Err != nil) {
				return models.Completion{}, a.interrupted(err)
			}
			if !ok {
				return models.Completion{FullText: a.Text()}, nil
			}
			if c.Err != nil {
				partial := a.Text()
				return models.Completion{FullText: partial}, &core.Error{
					Kind:    core.ErrStream,
					Op:      "stream.consume",
					Partial: partial,
					Err:     c.Err,
				}
			}
			a.Append(c.Delta)
			a.forward(c.Delta)
		}
	}
}

func (a *Aggregator) interrupted(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewError(core.ErrTimeout, "stream.consume", err)
	}
	return core.NewError(core.ErrCancelled, "stream.consume", err)
}

func (a *Aggregator) forward(delta string) {
	if a.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.sinkFailed(fmt.Errorf("sink panic: %v", r))
		}
	}()
	if err := a.sink(delta); err != nil {
		a.sinkFailed(err)
	}
}

func (a *Aggregator) sinkFailed(err error) {
	a.mu.Lock()
	a.sinkFailures++
	n := a.sinkFailures
	a.mu.Unlock()
	// Only the first failure is logged; a dead sink fails on every chunk.
	if n == 1 {
		a.log.Warn("live sink failed; accumulation continues", "error", err)
	}
}
