package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if !IsAdminFromContext(r.Context()) {
			http.Error(w, "not admin", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireToken_NoHeader_Returns401(t *testing.T) {
	var called bool
	req := httptest.NewRequest("GET", "/api/messages", nil)
	rec := httptest.NewRecorder()
	RequireToken("s3cret")(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Error("next handler should not be called")
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header")
	}
}

func TestRequireToken_WrongToken_Returns401(t *testing.T) {
	var called bool
	req := httptest.NewRequest("GET", "/api/messages", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	RequireToken("s3cret")(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Error("next handler should not be called")
	}
}

func TestRequireToken_ValidToken_CallsNextAsAdmin(t *testing.T) {
	var called bool
	req := httptest.NewRequest("GET", "/api/messages", nil)
	req.Header.Set("Authorization", "bearer s3cret")
	rec := httptest.NewRecorder()
	RequireToken("s3cret")(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !called {
		t.Error("expected next handler to be called")
	}
}

func TestGuard_EmptyTokenIsOpen(t *testing.T) {
	var called bool
	req := httptest.NewRequest("GET", "/api/messages", nil)
	rec := httptest.NewRecorder()
	Guard("")(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !called {
		t.Errorf("expected open access, got %d (called=%v)", rec.Code, called)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"BEARER  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := BearerToken(req); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
