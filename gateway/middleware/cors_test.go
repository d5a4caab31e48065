package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsHandler(cfg CORSConfig) http.Handler {
	return CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORSEchoesListedOrigin(t *testing.T) {
	handler := corsHandler(CORSConfig{AllowedOrigins: []string{"https://claims.example.com"}})

	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("Origin", "https://claims.example.com")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "https://claims.example.com" {
		t.Fatalf("allow-origin = %q", got)
	}
	if res.Header().Get("Vary") != "Origin" {
		t.Fatal("expected Vary: Origin on origin-scoped responses")
	}
}

func TestCORSIgnoresUnlistedOrigin(t *testing.T) {
	handler := corsHandler(CORSConfig{AllowedOrigins: []string{"https://claims.example.com"}})

	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin granted %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	handler := corsHandler(CORSConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/rpc", nil)
	req.Header.Set("Origin", "https://anything.example.com")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", res.Code)
	}
	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("wildcard default not applied, got %q", got)
	}
	if got := res.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Fatalf("default methods = %q", got)
	}
}
