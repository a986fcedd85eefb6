package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/portfolio/backend/internal/form"
	"github.com/portfolio/backend/internal/metrics"
	"github.com/portfolio/backend/internal/model"
	"github.com/portfolio/backend/internal/service"
	"github.com/portfolio/backend/pkg/auth"
)

// ContactHandler handles contact form submission and message administration.
type ContactHandler struct {
	contactService service.ContactService
}

// NewContactHandler creates a ContactHandler with the given service.
func NewContactHandler(contactService service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Submit handles POST /api/contact.
// name, email and message are required; timestamp is optional.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeBody(w, r, "contact")
	if !ok {
		return
	}

	sub, err := form.ValidateContact(raw)
	if err == nil {
		sub, err = form.SanitizeContact(sub)
	}
	if err != nil {
		metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		writeValidationError(w, r, "contact", err)
		return
	}

	res, err := h.contactService.Submit(r.Context(), sub)
	if err != nil {
		if errors.Is(err, service.ErrStorage) {
			slog.ErrorContext(r.Context(), "contact store failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save message")
			return
		}
		slog.ErrorContext(r.Context(), "contact notification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	slog.InfoContext(r.Context(), "contact message accepted", "id", res.ID, "emails", len(res.Receipts))
	writeJSON(w, http.StatusCreated, successResponse{
		Success: true,
		Message: "Message sent successfully",
		ID:      res.ID,
	})
}

// List handles GET /api/messages.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	messages, err := h.contactService.List(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrStoreDisabled) {
			NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "list messages failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read messages")
		return
	}

	// Return [] not null for empty lists
	if messages == nil {
		messages = []*model.StoredMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// MarkRead handles PATCH /api/messages/{id}/read.
func (h *ContactHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	id, err := strconv.ParseInt(urlParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid message id", Code: "invalid_id", Field: "id"})
		return
	}

	err = h.contactService.MarkRead(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Message not found")
	case errors.Is(err, service.ErrStoreDisabled):
		NotFound(w, r)
	default:
		slog.ErrorContext(r.Context(), "mark read failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update message")
	}
}

// requireAdmin answers 401 unless auth.Guard marked the request as admin.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if auth.IsAdminFromContext(r.Context()) {
		return true
	}
	writeError(w, http.StatusUnauthorized, "Unauthorized")
	return false
}
