package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// noopValidator disables SSRF checks so tests can hit httptest loopback
// servers.
func noopValidator(string) error { return nil }

func newTestFetcher(overrides Config) *Fetcher {
	overrides.URLValidator = noopValidator
	return New(overrides)
}

func TestFetchReturnsBody(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(Config{})
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if body != "<html><body>hi</body></html>" {
		t.Errorf("body = %q", body)
	}
	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Errorf("User-Agent = %q, want browser identity", gotUA)
	}
}

func TestFetchNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(Config{})
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("404 did not fail")
	}
}

func TestFetchRespectsMaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	f := newTestFetcher(Config{MaxBytes: 1024})
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("oversized body did not fail")
	}
}

func TestFetchValidatorBlocksBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	f := New(Config{}) // default validator rejects loopback
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("loopback URL not blocked")
	}
	if called {
		t.Error("request reached the server despite validation failure")
	}
}

func TestFetchContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	f := newTestFetcher(Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := f.Fetch(ctx, srv.URL); err == nil {
		t.Fatal("cancelled fetch succeeded")
	}
}

func TestFetchFollowsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	}))
	defer final.Close()
	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer hop.Close()

	f := newTestFetcher(Config{})
	body, err := f.Fetch(context.Background(), hop.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if body != "landed" {
		t.Errorf("body = %q", body)
	}
}
