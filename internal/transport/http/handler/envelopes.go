package handler

import (
	"encoding/json"
	"net/http"

	"github.com/qwiksale/verify-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// VerifyEnvelope wraps verification responses. Outcome is always set so
// clients never have to infer it from the status code alone.
type VerifyEnvelope struct {
	Outcome domain.VerifyOutcome `json:"outcome"`
	Message string               `json:"message,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
