package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"claimgate/gateway/middleware"
)

func signToken(t *testing.T, secret, scope string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   "claimgate",
		"scope": scope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRouterHealthzOpen(t *testing.T) {
	handler := New(Config{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("healthz status %d", res.Code)
	}
}

func TestRouterEnforcesScopesOnRPC(t *testing.T) {
	const secret = "router-test-secret"
	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    true,
		HMACSecret: secret,
		Issuer:     "claimgate",
	}, nil)
	rpcCalled := false
	handler := New(Config{
		RPC: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rpcCalled = true
			w.WriteHeader(http.StatusOK)
		}),
		Authenticator: auth,
	})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/rpc", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous rpc status %d, want 401", res.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "unrelated.scope"))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusForbidden {
		t.Fatalf("wrong-scope rpc status %d, want 403", res.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, ScopeClaim))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK || !rpcCalled {
		t.Fatalf("scoped rpc status %d called=%v", res.Code, rpcCalled)
	}
}

func TestRouterRateLimitsRPC(t *testing.T) {
	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		"rpc": {RatePerSecond: 1, Burst: 1},
	}, nil)
	handler := New(Config{
		RPC: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		RateLimiter: limiter,
	})

	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("X-API-Key", "tenant")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("first rpc status %d", res.Code)
	}
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("second rpc status %d, want 429", res.Code)
	}
}
