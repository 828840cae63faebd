package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	apperrors "pdf-view-session/pkg/errors"

	"github.com/gorilla/mux"
)

const maxJSONBody = 1 << 20

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeAppError maps err to its status code and a client-safe message.
func writeAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	body := map[string]string{
		"error": appErr.Message,
		"type":  string(appErr.Type),
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	writeJSON(w, appErr.StatusCode, body)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return apperrors.NewValidationError("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("request body is required")
		}
		return apperrors.NewValidationError("invalid JSON body", err.Error())
	}
	return nil
}

// pageIndexFromPath reads the one-based {page} route variable as a zero-based index.
func pageIndexFromPath(r *http.Request) (int, error) {
	raw := mux.Vars(r)["page"]
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, apperrors.NewValidationError("invalid page number", fmt.Sprintf("got %q", raw))
	}
	return page - 1, nil
}
