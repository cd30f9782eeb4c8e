package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/sensing-garden/backend/internal/domain"
)

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code. The data is
// serialized and Content-Type is set automatically.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[httputil] JSON encode error: %v", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes a JSON error response. Use for client errors (4xx).
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// Unauthorized writes a 401 error.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

// InternalError writes a 500 error carrying the failure text, so callers
// polling from field devices can see what went wrong without server
// access. The error is also logged.
func InternalError(w http.ResponseWriter, err error) {
	log.Printf("[httputil] internal error: %v", err)
	Error(w, http.StatusInternalServerError, err.Error())
}

// CSVAttachment writes body as a downloadable CSV file named filename.
func CSVAttachment(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, body); err != nil {
		log.Printf("[httputil] CSV write error: %v", err)
	}
}

// DecodeRecord reads the request body as a JSON object, keeping numbers
// verbatim. Returns false and writes a 400 response if parsing fails.
func DecodeRecord(w http.ResponseWriter, r *http.Request) (domain.Record, bool) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		BadRequest(w, "reading request body: "+err.Error())
		return nil, false
	}
	rec, err := domain.RecordFromJSON(raw)
	if err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return nil, false
	}
	return rec, true
}
