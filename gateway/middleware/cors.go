package middleware

import (
	"net/http"
	"strings"
)

// CORSConfig scopes browser access to the claim surface. The gateway only
// exposes JSON-RPC POSTs and the websocket event stream, so the method and
// header defaults stay narrow.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

// CORS answers preflights and stamps response headers. The request Origin is
// matched against the configured list and echoed back; unlisted origins get
// no allow headers at all.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "Authorization"}
	}
	allowAny := false
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			allowAny = true
			continue
		}
		allowed[origin] = struct{}{}
	}
	methodList := strings.Join(methods, ", ")
	headerList := strings.Join(headers, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			grant := ""
			switch {
			case allowAny && !cfg.AllowCredentials:
				grant = "*"
			case allowAny && origin != "":
				grant = origin
			default:
				if _, ok := allowed[origin]; ok {
					grant = origin
				}
			}
			if grant != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", grant)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", methodList)
				h.Set("Access-Control-Allow-Headers", headerList)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
