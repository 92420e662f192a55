package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
)

type contextKey string

const clientKey contextKey = "client"

// CORSConfig controls Cross-Origin Resource Sharing behaviour.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int // seconds
}

// DefaultCORSConfig allows any origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization", "X-API-Key", "X-Request-ID"},
		MaxAge:       86400,
	}
}

// CORS sets the CORS response headers for allowed origins and answers
// preflight requests. A config without origins allows none.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowMethods) == 0 {
		def := DefaultCORSConfig()
		cfg.AllowMethods, cfg.AllowHeaders, cfg.MaxAge = def.AllowMethods, def.AllowHeaders, def.MaxAge
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !originAllowed(cfg.AllowOrigins, origin) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
			w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// HashKey returns the SHA-256 hex digest of a raw API key, the form keys
// are configured in.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Auth rejects requests without one of the configured API keys. Keys are
// read from "Authorization: Bearer <key>" or X-API-Key. No configured keys
// disables the check.
func Auth(hashes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hashes) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			key := extractAPIKey(r)
			if key == "" {
				writeError(w, r, apperrors.New(apperrors.ErrUnauthorized, http.StatusUnauthorized, "missing api key"))
				return
			}
			presented := HashKey(key)
			for _, h := range hashes {
				if subtle.ConstantTimeCompare([]byte(presented), []byte(strings.ToLower(h))) == 1 {
					ctx := context.WithValue(r.Context(), clientKey, presented)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			writeError(w, r, apperrors.New(apperrors.ErrUnauthorized, http.StatusUnauthorized, "invalid api key"))
		})
	}
}

func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

// RateLimit enforces the limiter per API key, or per client address when
// keys are disabled.
func RateLimit(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, _ := r.Context().Value(clientKey).(string)
			if client == "" {
				client = remoteHost(r.RemoteAddr)
			}
			if !limiter.Allow(client) {
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.Window().Seconds())))
				writeError(w, r, apperrors.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
