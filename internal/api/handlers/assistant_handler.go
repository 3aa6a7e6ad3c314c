package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/markdave123-py/Assist/internal/core"
	"github.com/markdave123-py/Assist/internal/models"
	"github.com/markdave123-py/Assist/internal/services"
)

// Assistant is the orchestration surface served over HTTP.
type Assistant interface {
	Complete(ctx context.Context, p models.Prompt, opts ...services.CallOption) (string, error)
	EmbedAndStore(ctx context.Context, p models.Prompt) (string, error)
	RetrieveAndComplete(ctx context.Context, p models.Prompt, opts ...services.CallOption) (string, error)
}

type AssistantHandler struct {
	assistant Assistant
	log       *slog.Logger
}

func NewAssistantHandler(a Assistant, log *slog.Logger) *AssistantHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AssistantHandler{assistant: a, log: log}
}

type answerResponse struct {
	Answer string `json:"answer"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Ask answers the question in the requested response mode.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePrompt(w, r)
	if !ok {
		return
	}
	answer, err := h.assistant.Complete(r.Context(), p)
	if err != nil {
		h.log.Error("ask failed", "error", err, "mode", p.ResponseMode.String())
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Answer: answer})
}

// AskStream streams the completion as server-sent events.
func (h *AssistantHandler) AskStream(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePrompt(w, r)
	if !ok {
		return
	}
	p.ResponseMode = models.Streaming

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported", Kind: "internal"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := func(delta string) error {
		if err := writeEvent(w, "", delta); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	_, err := h.assistant.Complete(r.Context(), p, services.WithSink(sink))
	if err != nil {
		h.log.Error("stream failed", "error", err, "partial_len", len(core.PartialText(err)))
		_, kind := classify(err)
		body, _ := json.Marshal(errorBody(err, kind))
		writeEvent(w, "error", string(body)) //nolint:errcheck
		flusher.Flush()
		return
	}
	writeEvent(w, "done", "") //nolint:errcheck
	flusher.Flush()
}

// Embeddings embeds the question text and stores it in the knowledge base.
func (h *AssistantHandler) Embeddings(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePrompt(w, r)
	if !ok {
		return
	}
	msg, err := h.assistant.EmbedAndStore(r.Context(), p)
	if err != nil {
		h.log.Error("embed and store failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// Expert answers the question grounded on the stored knowledge.
func (h *AssistantHandler) Expert(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePrompt(w, r)
	if !ok {
		return
	}
	answer, err := h.assistant.RetrieveAndComplete(r.Context(), p)
	if err != nil {
		h.log.Error("expert answer failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Answer: answer})
}

func decodePrompt(w http.ResponseWriter, r *http.Request) (models.Prompt, bool) {
	var p models.Prompt
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, core.NewError(core.ErrInvalidPrompt, "decode prompt", err))
		return p, false
	}
	return p, true
}

// writeEvent writes one SSE event. Multi-line data is split into one data
// field per line so clients rejoin it with newlines.
func writeEvent(w http.ResponseWriter, event, data string) error {
	var sb strings.Builder
	if event != "" {
		fmt.Fprintf(&sb, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&sb, "data: %s\n", line)
	}
	sb.WriteString("\n")
	_, err := w.Write([]byte(sb.String()))
	return err
}
