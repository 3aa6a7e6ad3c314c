package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/Assist/internal/core/ingestion_engine"
	"github.com/markdave123-py/Assist/internal/models"
)

// Enqueuer schedules document ingestion jobs.
type Enqueuer interface {
	Enqueue(job models.IngestJob) error
}

type KnowledgeHandler struct {
	ingestor      Enqueuer
	defaultBucket string
}

func NewKnowledgeHandler(ing Enqueuer, defaultBucket string) *KnowledgeHandler {
	return &KnowledgeHandler{ingestor: ing, defaultBucket: defaultBucket}
}

// Ingest queues a stored document for chunking and embedding.
func (h *KnowledgeHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var job models.IngestJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body", Kind: "invalid_request"})
		return
	}
	job.Key = strings.TrimSpace(job.Key)
	if job.Key == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "key is required", Kind: "invalid_request"})
		return
	}
	if job.Bucket == "" {
		job.Bucket = h.defaultBucket
	}
	if job.Bucket == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bucket is required", Kind: "invalid_request"})
		return
	}
	job.ID = uuid.NewString()

	if err := h.ingestor.Enqueue(job); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingestion_engine.ErrQueueFull) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, errorResponse{Error: err.Error(), Kind: "ingest"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}
