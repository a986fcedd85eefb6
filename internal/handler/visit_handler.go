package handler

import (
	"log/slog"
	"net/http"

	"github.com/portfolio/backend/internal/form"
	"github.com/portfolio/backend/internal/service"
)

// VisitHandler relays anonymous visit pings.
type VisitHandler struct {
	visitService service.VisitService
}

// NewVisitHandler creates a VisitHandler.
func NewVisitHandler(visitService service.VisitService) *VisitHandler {
	return &VisitHandler{visitService: visitService}
}

// Track handles POST /api/visit. timestamp is required; userAgent and
// referrer fall back to defaults.
func (h *VisitHandler) Track(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeBody(w, r, "visit")
	if !ok {
		return
	}
	ev, err := form.ValidateVisit(raw)
	if err != nil {
		writeValidationError(w, r, "visit", err)
		return
	}
	ev = form.SanitizeVisit(ev)

	if _, err := h.visitService.Track(r.Context(), ev); err != nil {
		slog.ErrorContext(r.Context(), "visit notification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to track visit")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
