package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/portfolio/backend/internal/form"
	"github.com/portfolio/backend/internal/metrics"
)

// decodeBody parses the request body as a JSON object. On failure it has
// already written the response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, endpoint string) (map[string]any, bool) {
	raw, err := form.Decode(r.Body)
	if err == nil {
		return raw, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		metrics.ValidationFailures.WithLabelValues(endpoint, "body_too_large").Inc()
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return nil, false
	}
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		slog.WarnContext(r.Context(), "read request body failed", "error", err)
		err = &form.ValidationError{Kind: form.KindInvalidBody}
	}
	writeValidationError(w, r, endpoint, err)
	return nil, false
}

// writeValidationError answers 400 for a *form.ValidationError and 500 for
// anything else.
func writeValidationError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		slog.ErrorContext(r.Context(), "unexpected validation failure", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	metrics.ValidationFailures.WithLabelValues(endpoint, string(verr.Kind)).Inc()
	slog.InfoContext(r.Context(), "request rejected", "endpoint", endpoint, "kind", verr.Kind, "field", verr.Field)
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error: verr.Message(),
		Code:  string(verr.Kind),
		Field: verr.Field,
	})
}

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
