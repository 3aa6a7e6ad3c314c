package llm

import (
	"context"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/Assist/internal/core"
	"github.com/markdave123-py/Assist/internal/models"
)

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	return &GeminiEmbedder{client: cl, modelName: modelName}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) (models.Vector, error) {
	res, err := g.client.EmbeddingModel(g.modelName).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, core.Backend("gemini.embed", err)
	}
	if res == nil || res.Embedding == nil {
		return nil, core.Malformed("gemini.embed", "response has no embedding")
	}
	return models.Vector(res.Embedding.Values), nil
}

var _ core.EmbeddingClient = (*GeminiEmbedder)(nil)
