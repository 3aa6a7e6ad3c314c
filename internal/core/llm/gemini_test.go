package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
)

func TestCandidateText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Par"), genai.Text("is.")}},
	}}}
	got, ok := candidateText(resp)
	assert.True(t, ok)
	assert.Equal(t, "Paris.", got)

	_, ok = candidateText(&genai.GenerateContentResponse{})
	assert.False(t, ok)
}
