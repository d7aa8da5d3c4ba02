package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// WriteJSON encodes v before touching the response so that an encoding
// failure can still be reported as a 500.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode JSON", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal Server Error","message":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"message": msg,
	})
}

func WriteHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write HTML", "error", err)
	}
}
