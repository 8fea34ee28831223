package api

import (
	"encoding/json"
	"net/http"

	"github.com/repackdex/repackdex/internal/logger"
)

func writeJSON(w http.ResponseWriter, log logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ErrorObj("json encode failed", "http_encode_error", map[string]any{"error": err.Error()})
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
