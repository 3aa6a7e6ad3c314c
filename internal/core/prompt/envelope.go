// Package prompt renders questions into the conversational envelope the text
// model expects.
package prompt

import (
	"strings"

	"github.com/markdave123-py/Assist/internal/core"
)

const (
	HumanTurn     = "Human:"
	AssistantTurn = "\n\nAssistant:"

	// StopHuman keeps the model from writing the next human turn itself.
	StopHuman = "\n\nHuman:"
)

// Defaults per call site.
var (
	BlockingOptions = core.GenerationOptions{
		MaxTokens:     200,
		Temperature:   0.5,
		StopSequences: []string{StopHuman},
	}
	StreamingOptions = core.GenerationOptions{
		MaxTokens:     300,
		Temperature:   0.8,
		StopSequences: []string{StopHuman},
	}
	RetrievalOptions = core.GenerationOptions{
		MaxTokens:   200,
		Temperature: 0,
	}
)

// neutralizer breaks turn markers embedded in caller text so they cannot open a
// new turn inside the envelope.
var neutralizer = strings.NewReplacer(
	"\n\nHuman:", "\n\n Human:",
	"\n\nAssistant:", "\n\n Assistant:",
)

// Build wraps question, preceded by one <context> block per fragment in the
// given order, between the human and assistant turn markers.
//
// The body is neutralized after it is joined, so markers formed across a
// fragment boundary are broken too.
func Build(question string, fragments []string, opts core.GenerationOptions) core.Envelope {
	var body strings.Builder
	for _, f := range fragments {
		body.WriteString("<context>")
		body.WriteString(f)
		body.WriteString("</context>\n")
	}
	body.WriteString(question)

	text := HumanTurn + " " + neutralizer.Replace(body.String()) + AssistantTurn

	opts.StopSequences = append([]string(nil), opts.StopSequences...)
	return core.Envelope{Text: text, Options: opts}
}

// ForCompletion builds a plain envelope with the defaults for blocking or
// streaming completion.
func ForCompletion(question string, streaming bool) core.Envelope {
	if streaming {
		return Build(question, nil, StreamingOptions)
	}
	return Build(question, nil, BlockingOptions)
}

// ForRetrieval builds a deterministic envelope carrying retrieved context.
func ForRetrieval(question string, fragments []string) core.Envelope {
	return Build(question, fragments, RetrievalOptions)
}
