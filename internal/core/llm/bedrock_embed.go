package llm

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/markdave123-py/Assist/internal/core"
	"github.com/markdave123-py/Assist/internal/models"
)

type titanRequest struct {
	InputText string `json:"inputText"`
}

type titanResponse struct {
	Embedding []float32 `json:"embedding"`
}

type BedrockEmbedder struct {
	client  *bedrockruntime.Client
	modelID string
}

func NewBedrockEmbedder(awsCfg aws.Config, modelID string) *BedrockEmbedder {
	if modelID == "" {
		modelID = DefaultBedrockEmbedModel
	}
	return &BedrockEmbedder{client: bedrockruntime.NewFromConfig(awsCfg), modelID: modelID}
}

// Embed converts text with the Titan embedding model.
func (b *BedrockEmbedder) Embed(ctx context.Context, text string) (models.Vector, error) {
	body, err := json.Marshal(titanRequest{InputText: text})
	if err != nil {
		return nil, core.Backend("bedrock.encode", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		Body:        body,
		ContentType: aws.String(mimeJSON),
		Accept:      aws.String(mimeJSON),
	})
	if err != nil {
		return nil, core.Backend("bedrock.embed", err)
	}
	return decodeEmbedding(out.Body)
}

func decodeEmbedding(body []byte) (models.Vector, error) {
	var resp titanResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, core.Malformed("bedrock.decode", "decode embedding: %v", err)
	}
	if resp.Embedding == nil {
		return nil, core.Malformed("bedrock.decode", "response has no embedding field")
	}
	return models.Vector(resp.Embedding), nil
}

var _ core.EmbeddingClient = (*BedrockEmbedder)(nil)
