package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/portfolio/backend/internal/mailer"
	"github.com/portfolio/backend/internal/model"
)

type mockVisitService struct {
	trackFunc  func(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error)
	trackCalls int
}

func (m *mockVisitService) Track(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error) {
	m.trackCalls++
	if m.trackFunc != nil {
		return m.trackFunc(ctx, ev)
	}
	return mailer.Receipt{}, nil
}

func postVisit(h *VisitHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/visit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Track(rec, req)
	return rec
}

func TestVisitHandler_Track_AppliesDefaults(t *testing.T) {
	var captured model.VisitEvent
	mock := &mockVisitService{
		trackFunc: func(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error) {
			captured = ev
			return mailer.Receipt{MessageID: "<dev-1@example.com>"}, nil
		},
	}
	rec := postVisit(NewVisitHandler(mock), `{"timestamp":"2024-01-01T00:00:00.000Z"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp successResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if captured.UserAgent != "Unknown" || captured.Referrer != "Direct Visit" {
		t.Errorf("expected defaults, got %+v", captured)
	}
}

func TestVisitHandler_Track_TrimsFields(t *testing.T) {
	var captured model.VisitEvent
	mock := &mockVisitService{
		trackFunc: func(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error) {
			captured = ev
			return mailer.Receipt{}, nil
		},
	}
	long := strings.Repeat("a", 250)
	body := `{"timestamp":"t","userAgent":"  ` + long + `  ","referrer":" https://example.com/ "}`
	rec := postVisit(NewVisitHandler(mock), body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(captured.UserAgent) != 200 {
		t.Errorf("expected userAgent capped at 200, got %d", len(captured.UserAgent))
	}
	if captured.Referrer != "https://example.com/" {
		t.Errorf("expected trimmed referrer, got %q", captured.Referrer)
	}
}

func TestVisitHandler_Track_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  string
		wantField string
	}{
		{"missing timestamp", `{"userAgent":"x"}`, "missing_field", "timestamp"},
		{"blank timestamp", `{"timestamp":"   "}`, "missing_field", "timestamp"},
		{"non-string referrer", `{"timestamp":"t","referrer":5}`, "invalid_type", "referrer"},
		{"not json", `nope`, "invalid_body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockVisitService{}
			rec := postVisit(NewVisitHandler(mock), tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			body := decodeError(t, rec)
			if body.Code != tt.wantCode || body.Field != tt.wantField {
				t.Errorf("expected %s/%s, got %+v", tt.wantCode, tt.wantField, body)
			}
			if mock.trackCalls != 0 {
				t.Error("service must not be called on invalid input")
			}
		})
	}
}

func TestVisitHandler_Track_SendFailure(t *testing.T) {
	mock := &mockVisitService{
		trackFunc: func(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error) {
			return mailer.Receipt{}, errors.New("smtp down")
		},
	}
	rec := postVisit(NewVisitHandler(mock), `{"timestamp":"t"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != "Failed to track visit" {
		t.Errorf("unexpected body %+v", body)
	}
}
