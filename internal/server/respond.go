package server

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the uniform error body: {"error": "..."}.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v and writes it with the given status code. On encoding
// failure it falls back to a plain 500 body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}

// writeError writes the uniform error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads the request body into v. It returns false after writing a
// 400 response when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON.")
		return false
	}
	return true
}
