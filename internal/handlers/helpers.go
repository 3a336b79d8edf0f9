package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benvon/personalization/internal/validation"
	"github.com/goccy/go-json"
)

// maxErrorMessageLength bounds messages echoed to clients
const maxErrorMessageLength = 200

// respondJSON writes the success envelope
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func sanitizeErrorMessage(message string) string {
	if len(message) > maxErrorMessageLength {
		return message[:maxErrorMessageLength] + "..."
	}
	return message
}

// respondJSONError writes the error envelope with a length-capped message
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the caller may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Failed to read request body")
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Request body is required")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}

	if err := validation.Validate.Struct(dst); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+validation.FirstError(err))
		return false
	}
	return true
}
