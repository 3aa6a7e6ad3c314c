package llm

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/markdave123-py/Assist/internal/core"
	"github.com/markdave123-py/Assist/internal/models"
)

type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) model(opts core.GenerationOptions) *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if len(opts.StopSequences) > 0 {
		m.StopSequences = opts.StopSequences
	}
	return m
}

func (g *GeminiLLM) CompleteBlocking(ctx context.Context, env core.Envelope) (models.Completion, error) {
	resp, err := g.model(env.Options).GenerateContent(ctx, genai.Text(env.Text))
	if err != nil {
		return models.Completion{}, core.Backend("gemini.generate", err)
	}
	text, ok := candidateText(resp)
	if !ok {
		return models.Completion{}, core.Malformed("gemini.generate", "response has no candidate content")
	}
	return models.Completion{FullText: text}, nil
}

func (g *GeminiLLM) CompleteStreaming(ctx context.Context, env core.Envelope) (<-chan core.Chunk, error) {
	iter := g.model(env.Options).GenerateContentStream(ctx, genai.Text(env.Text))

	chunks := make(chan core.Chunk, 16)
	go func() {
		defer close(chunks)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			var c core.Chunk
			if err != nil {
				c.Err = core.Backend("gemini.stream", err)
			} else {
				// Trailing responses may carry only finish metadata.
				c.Delta, _ = candidateText(resp)
			}
			select {
			case chunks <- c:
			case <-ctx.Done():
				return
			}
			if c.Err != nil {
				return
			}
		}
	}()
	return chunks, nil
}

// candidateText joins the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", false
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), true
}

var _ core.ModelClient = (*GeminiLLM)(nil)
