package core

import (
	"context"

	"github.com/markdave123-py/Assist/internal/models"
)

// GenerationOptions are the sampling knobs sent with every generation request.
type GenerationOptions struct {
	MaxTokens     int
	Temperature   float64
	StopSequences []string
}

// Envelope is the fully rendered model input for one request.
type Envelope struct {
	Text    string
	Options GenerationOptions
}

// Chunk is one value delivered on a streaming channel. A closed channel means
// the stream is done; a Chunk carrying Err is the last value sent.
type Chunk struct {
	Delta string
	Err   error
}

// ModelClient performs generation against the model backend.
type ModelClient interface {
	CompleteBlocking(ctx context.Context, env Envelope) (models.Completion, error)
	// CompleteStreaming returns a channel fed by a producer goroutine owned by the
	// client. The producer must close the channel once ctx is done.
	CompleteStreaming(ctx context.Context, env Envelope) (<-chan Chunk, error)
}

// EmbeddingClient converts text into a vector with the backend's embedding model.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) (models.Vector, error)
}
