// Package api serves the People Partner HTTP endpoints.
package api

import (
	"encoding/json"
	"net/http"

	"people-partner/internal/usecase"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error writes a JSON error response carrying a machine-readable code.
func Error(w http.ResponseWriter, status int, message string, code usecase.ErrorCode) {
	JSON(w, status, errorResponse{Error: message, Code: string(code)})
}
