package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestGenerateValidateRoundTrip(t *testing.T) {
	claims := &HorosClaims{UserID: "u-1", Email: "a@b.test", Role: "client"}
	token, err := GenerateToken(testSecret, claims, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	got, err := ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.UserID != "u-1" {
		t.Errorf("UserID: got %q", got.UserID)
	}
	if got.Role != "client" {
		t.Errorf("Role: got %q", got.Role)
	}
}

func TestGenerateRejectsShortSecret(t *testing.T) {
	_, err := GenerateToken([]byte("short"), &HorosClaims{UserID: "u"}, time.Hour)
	if err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	token, err := GenerateToken(testSecret, &HorosClaims{UserID: "u"}, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(testSecret, token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestMiddlewareBearerHeader(t *testing.T) {
	token, _ := GenerateToken(testSecret, &HorosClaims{UserID: "u-42", Role: "client"}, time.Hour)

	var got *HorosClaims
	h := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClaims(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/pages/list", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.UserID != "u-42" {
		t.Fatalf("claims not injected: %+v", got)
	}
}

func TestRequireSessionRejectsAnonymous(t *testing.T) {
	h := RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/pages/list", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
}
