package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Assist/internal/core"
	"github.com/markdave123-py/Assist/internal/core/prompt"
	"github.com/markdave123-py/Assist/internal/core/retrieval"
	"github.com/markdave123-py/Assist/internal/core/stream"
	"github.com/markdave123-py/Assist/internal/models"
)

// SavedConfirmation is returned once an embedding has been persisted.
const SavedConfirmation = "Embeddings saved to database...!"

const DefaultStreamTimeout = 2 * time.Minute

// Options tunes the assistant pipelines.
//
// StreamTimeout:        bound on the wait for a streamed completion (0 = DefaultStreamTimeout).
// TolerateStreamErrors: on a mid-stream backend error, log it and return the partial text as success.
// Sink:                 default live sink for streamed deltas (nil = no forwarding).
type Options struct {
	StreamTimeout        time.Duration
	TolerateStreamErrors bool
	Sink                 stream.Sink
}

// AssistantService coordinates completion, embedding storage and retrieval-augmented completion.
type AssistantService struct {
	llm       core.ModelClient
	embedder  core.EmbeddingClient
	store     core.KnowledgeStore
	augmenter *retrieval.Augmenter
	opts      Options
	log       *slog.Logger
}

func NewAssistantService(llm core.ModelClient, emb core.EmbeddingClient, store core.KnowledgeStore, aug *retrieval.Augmenter, opts Options, log *slog.Logger) *AssistantService {
	if log == nil {
		log = slog.Default()
	}
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = DefaultStreamTimeout
	}
	if aug == nil {
		aug = retrieval.NewAugmenter(store, log)
	}
	return &AssistantService{llm: llm, embedder: emb, store: store, augmenter: aug, opts: opts, log: log}
}

type callConfig struct {
	sink stream.Sink
}

// CallOption overrides service defaults for a single call.
type CallOption func(*callConfig)

// WithSink forwards the deltas of this call to sink instead of the service default.
func WithSink(sink stream.Sink) CallOption {
	return func(c *callConfig) { c.sink = sink }
}

func (s *AssistantService) callConfig(opts []CallOption) callConfig {
	cfg := callConfig{sink: s.opts.Sink}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Complete answers the question directly, in the prompt's response mode.
func (s *AssistantService) Complete(ctx context.Context, p models.Prompt, opts ...CallOption) (string, error) {
	if err := validate(p); err != nil {
		return "", err
	}
	cfg := s.callConfig(opts)

	switch p.ResponseMode {
	case models.Streaming:
		return s.streamCompletion(ctx, prompt.ForCompletion(p.Question, true), cfg)
	case models.Blocking:
		return s.blockingCompletion(ctx, prompt.ForCompletion(p.Question, false))
	default:
		return "", core.NewError(core.ErrInvalidPrompt, "assistant.complete", errors.New("unsupported response mode "+p.ResponseMode.String()))
	}
}

// EmbedAndStore embeds the question and saves it as a knowledge entry.
func (s *AssistantService) EmbedAndStore(ctx context.Context, p models.Prompt) (string, error) {
	if err := validate(p); err != nil {
		return "", err
	}

	vec, err := s.embed(ctx, p.Question)
	if err != nil {
		return "", err
	}

	entry := models.KnowledgeEntry{
		ID:        uuid.NewString(),
		Text:      p.Question,
		Vector:    vec,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Save(ctx, entry); err != nil {
		return "", core.NewError(core.ErrStore, "assistant.save", err)
	}

	s.log.Info("knowledge entry saved", "id", entry.ID, "dims", len(vec))
	return SavedConfirmation, nil
}

// RetrieveAndComplete answers the question from stored knowledge. The answer is
// always streamed at temperature 0, whatever the prompt's response mode.
func (s *AssistantService) RetrieveAndComplete(ctx context.Context, p models.Prompt, opts ...CallOption) (string, error) {
	if err := validate(p); err != nil {
		return "", err
	}
	cfg := s.callConfig(opts)

	vec, err := s.embed(ctx, p.Question)
	if err != nil {
		return "", err
	}

	fragments, err := s.augmenter.Augment(ctx, vec)
	if err != nil {
		return "", err
	}

	env := prompt.ForRetrieval(p.Question, fragments)
	s.log.Debug("retrieval envelope built", "fragments", len(fragments), "envelope", env.Text)

	return s.streamCompletion(ctx, env, cfg)
}

func (s *AssistantService) blockingCompletion(ctx context.Context, env core.Envelope) (string, error) {
	c, err := s.llm.CompleteBlocking(ctx, env)
	if err != nil {
		return "", classify(ctx, "assistant.complete_blocking", err)
	}
	return c.FullText, nil
}

// streamCompletion is the single suspension point of a request: it waits,
// bounded by StreamTimeout, for the stream to finish.
func (s *AssistantService) streamCompletion(ctx context.Context, env core.Envelope, cfg callConfig) (string, error) {
	sctx, cancel := context.WithTimeout(ctx, s.opts.StreamTimeout)
	// Cancelling sctx stops the producer and releases the backend stream.
	defer cancel()

	chunks, err := s.llm.CompleteStreaming(sctx, env)
	if err != nil {
		return "", classify(sctx, "assistant.complete_streaming", err)
	}

	agg := stream.NewAggregator(cfg.sink, s.log)
	c, err := agg.Consume(sctx, chunks)
	if err != nil {
		if errors.Is(err, core.ErrStream) && s.opts.TolerateStreamErrors {
			s.log.Error("stream ended with error; returning partial completion", "error", err, "chunks", agg.Chunks())
			return c.FullText, nil
		}
		return c.FullText, err
	}
	return c.FullText, nil
}

func (s *AssistantService) embed(ctx context.Context, text string) (models.Vector, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, classify(ctx, "assistant.embed", err)
	}
	if len(vec) == 0 {
		return nil, core.Malformed("assistant.embed", "empty embedding")
	}
	return vec, nil
}

func validate(p models.Prompt) error {
	if strings.TrimSpace(p.Question) == "" {
		return core.NewError(core.ErrInvalidPrompt, "assistant.validate", errors.New("question is empty"))
	}
	return nil
}

// classify tags an unclassified collaborator error with a kind. A backend
// failure caused by the request ending is reported as timeout or cancellation.
func classify(ctx context.Context, op string, err error) error {
	kind := core.KindOf(err)
	if kind != nil && (kind != core.ErrBackend || ctx.Err() == nil) {
		return err
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return core.NewError(core.ErrTimeout, op, err)
	case errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled):
		return core.NewError(core.ErrCancelled, op, err)
	case kind != nil:
		return err
	default:
		return core.Backend(op, err)
	}
}
