package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ResponseMode selects how a completion is produced by the model backend.
type ResponseMode int

const (
	// Blocking returns the whole completion from a single request/response call.
	Blocking ResponseMode = iota
	// Streaming receives the completion as an ordered sequence of partial chunks.
	Streaming
)

func (m ResponseMode) String() string {
	switch m {
	case Blocking:
		return "sync"
	case Streaming:
		return "async"
	default:
		return fmt.Sprintf("ResponseMode(%d)", int(m))
	}
}

// ParseResponseMode accepts the client vocabulary ("sync"/"async") and the
// descriptive names ("blocking"/"streaming").
func ParseResponseMode(s string) (ResponseMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sync", "blocking":
		return Blocking, nil
	case "async", "streaming", "stream":
		return Streaming, nil
	default:
		return Blocking, fmt.Errorf("unknown response type %q", s)
	}
}

func (m ResponseMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *ResponseMode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("response type must be a string: %w", err)
	}
	parsed, err := ParseResponseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Prompt is a single caller request. It is consumed once and never persisted.
type Prompt struct {
	Question     string       `json:"question"`
	ResponseMode ResponseMode `json:"responseType"`
}

// Completion is the final text produced by either invocation mode.
type Completion struct {
	FullText string `json:"fullText"`
}

// Vector is an embedding produced by the embedding model.
type Vector []float32

// KnowledgeEntry is the unit persisted by the knowledge store.
type KnowledgeEntry struct {
	ID        string    `db:"id" json:"id"`
	Text      string    `db:"text_data" json:"text"`
	Vector    Vector    `db:"vector_data" json:"vector"` // pgvector column
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IngestJob asks the ingestor to load a stored document into the knowledge base.
type IngestJob struct {
	ID          string `json:"job_id"`
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
}
