// Package routes assembles the public HTTP surface: the JSON-RPC endpoint,
// the websocket event stream, health and metrics.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"claimgate/gateway/middleware"
)

// Scopes required by the gateway-level JWT check. The RPC server still
// enforces its own bearer token on mutating methods.
const (
	ScopeClaim = "campaign.claim"
	ScopeWrite = "campaign.write"
)

type Config struct {
	RPC           http.Handler
	Events        http.Handler
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
}

func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.RPC != nil {
		r.Route("/rpc", func(sr chi.Router) {
			if cfg.RateLimiter != nil {
				sr.Use(cfg.RateLimiter.Middleware("rpc"))
			}
			if cfg.Authenticator != nil {
				sr.Use(cfg.Authenticator.Middleware(ScopeClaim))
			}
			if obs != nil {
				sr.Use(obs.Middleware("rpc"))
			}
			sr.Handle("/", cfg.RPC)
		})
	}

	if cfg.Events != nil {
		r.Route("/ws/events", func(sr chi.Router) {
			if cfg.RateLimiter != nil {
				sr.Use(cfg.RateLimiter.Middleware("events"))
			}
			if obs != nil {
				sr.Use(obs.Middleware("events"))
			}
			sr.Handle("/", cfg.Events)
		})
	}

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	return r
}
