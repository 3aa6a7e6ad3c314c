package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/markdave123-py/Assist/internal/core"
)

// StatusClientClosedRequest is the non-standard status used when the caller went away.
const StatusClientClosedRequest = 499

type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Partial string `json:"partial,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	writeJSON(w, status, errorBody(err, kind))
}

func errorBody(err error, kind string) errorResponse {
	return errorResponse{Error: err.Error(), Kind: kind, Partial: core.PartialText(err)}
}

// classify maps an error kind to its HTTP status and wire name.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidPrompt):
		return http.StatusBadRequest, "invalid_prompt"
	case errors.Is(err, core.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, core.ErrCancelled):
		return StatusClientClosedRequest, "cancelled"
	case errors.Is(err, core.ErrStream):
		return http.StatusBadGateway, "stream"
	case errors.Is(err, core.ErrMalformedResponse):
		return http.StatusBadGateway, "malformed_response"
	case errors.Is(err, core.ErrBackend):
		return http.StatusBadGateway, "backend"
	case errors.Is(err, core.ErrStore):
		return http.StatusInternalServerError, "store"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
