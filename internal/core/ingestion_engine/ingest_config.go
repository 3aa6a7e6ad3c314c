package ingestion_engine

import (
	"log/slog"

	"github.com/markdave123-py/Assist/internal/core"
	"github.com/markdave123-py/Assist/internal/models"
)

// IngestConfig tunes the streaming pipeline.
//
// TargetTokens:   approximate tokens per chunk (e.g., 500).
// OverlapTokens:  token overlap between consecutive chunks for context bleed (e.g., 50).
// QueueSize:      capacity of the in-memory job queue.
type IngestConfig struct {
	TargetTokens  int
	OverlapTokens int
	QueueSize     int
}

// chunk is the internal representation passed through the pipeline.
//
// Pos:      stable, zero-based position of the chunk inside the document.
// Text:     chunk content (built from one or more fragments).
// TokenCnt: approximate token count (used for overlap math).
type chunk struct {
	Pos      int
	Text     string
	TokenCnt int
}

// DocumentIngestor loads stored documents into the knowledge base:
//
// store:     knowledge store receiving one entry per chunk.
// obj:       object storage holding the source documents.
// embedder:  embedding provider (Bedrock Titan / Gemini).
// extractor: document to text fragments.
// jobs:      in-memory queue of ingestion jobs.
type DocumentIngestor struct {
	store     core.KnowledgeStore
	obj       core.ObjectClient
	embedder  core.EmbeddingClient
	extractor core.DocumentExtractor
	cfg       IngestConfig
	jobs      chan models.IngestJob
	log       *slog.Logger
}

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
}
