package llm

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/markdave123-py/Assist/internal/core"
	"github.com/markdave123-py/Assist/internal/models"
)

const (
	DefaultBedrockTextModel  = "anthropic.claude-v2"
	DefaultBedrockEmbedModel = "amazon.titan-embed-text-v1"

	mimeJSON = "application/json"
)

// claudeRequest is the Claude v2 text-completion body.
type claudeRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       float64  `json:"temperature"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
}

// claudeResponse is both the blocking response and the streamed chunk payload.
type claudeResponse struct {
	Completion *string `json:"completion"`
}

type BedrockLLM struct {
	client  *bedrockruntime.Client
	modelID string
	log     *slog.Logger
}

func NewBedrockLLM(awsCfg aws.Config, modelID string, log *slog.Logger) *BedrockLLM {
	if modelID == "" {
		modelID = DefaultBedrockTextModel
	}
	if log == nil {
		log = slog.Default()
	}
	return &BedrockLLM{client: bedrockruntime.NewFromConfig(awsCfg), modelID: modelID, log: log}
}

func (b *BedrockLLM) CompleteBlocking(ctx context.Context, env core.Envelope) (models.Completion, error) {
	body, err := claudeBody(env)
	if err != nil {
		return models.Completion{}, err
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		Body:        body,
		ContentType: aws.String(mimeJSON),
		Accept:      aws.String(mimeJSON),
	})
	if err != nil {
		return models.Completion{}, core.Backend("bedrock.invoke_model", err)
	}

	text, err := decodeCompletion(out.Body)
	if err != nil {
		return models.Completion{}, err
	}
	b.log.Debug("bedrock completion received", "model", b.modelID, "chars", len(text))
	return models.Completion{FullText: text}, nil
}

func (b *BedrockLLM) CompleteStreaming(ctx context.Context, env core.Envelope) (<-chan core.Chunk, error) {
	body, err := claudeBody(env)
	if err != nil {
		return nil, err
	}

	out, err := b.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(b.modelID),
		Body:        body,
		ContentType: aws.String(mimeJSON),
		Accept:      aws.String(mimeJSON),
	})
	if err != nil {
		return nil, core.Backend("bedrock.invoke_model_stream", err)
	}

	es := out.GetStream()
	chunks := make(chan core.Chunk, 16)
	go func() {
		defer close(chunks)
		defer es.Close()
		pumpEvents(ctx, es.Events(), es.Err, chunks)
	}()
	return chunks, nil
}

// pumpEvents translates Bedrock stream events into chunks until the events
// channel closes or ctx ends. streamErr is consulted once events are exhausted.
func pumpEvents(ctx context.Context, events <-chan types.ResponseStream, streamErr func() error, out chan<- core.Chunk) {
	send := func(c core.Chunk) bool {
		select {
		case out <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				if err := streamErr(); err != nil {
					send(core.Chunk{Err: core.Backend("bedrock.stream", err)})
				}
				return
			}
			part, isChunk := ev.(*types.ResponseStreamMemberChunk)
			if !isChunk {
				continue
			}
			delta, err := decodeCompletion(part.Value.Bytes)
			if err != nil {
				send(core.Chunk{Err: err})
				return
			}
			if !send(core.Chunk{Delta: delta}) {
				return
			}
		}
	}
}

func claudeBody(env core.Envelope) ([]byte, error) {
	body, err := json.Marshal(claudeRequest{
		Prompt:            env.Text,
		MaxTokensToSample: env.Options.MaxTokens,
		Temperature:       env.Options.Temperature,
		StopSequences:     env.Options.StopSequences,
	})
	if err != nil {
		return nil, core.Backend("bedrock.encode", err)
	}
	return body, nil
}

func decodeCompletion(body []byte) (string, error) {
	var resp claudeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", core.Malformed("bedrock.decode", "decode completion: %v", err)
	}
	if resp.Completion == nil {
		return "", core.Malformed("bedrock.decode", "response has no completion field")
	}
	return *resp.Completion, nil
}

var _ core.ModelClient = (*BedrockLLM)(nil)
