// Package shield holds the HTTP middleware stack in front of the tapkeeper
// API.
package shield

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/taptarget/idgen"
	"github.com/hazyhaar/taptarget/kit"
)

type ctxKey struct{}

// APIStack returns the standard middleware for a JSON API, outermost first.
func APIStack(logger *slog.Logger, maxBody int64) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders,
		MaxBody(maxBody),
		RequestID(logger),
	}
}

// HeadToGet serves HEAD requests through GET routes.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets headers suitable for JSON responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// MaxBody caps request bodies at maxBytes. Zero or less disables the cap.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID tags each request with an ID, echoed in X-Request-ID, stored in
// the context via kit.WithRequestID, and logged with the request duration.
// An incoming X-Request-ID is kept when idgen.Accept allows it.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if !idgen.Accept(id) {
				id = idgen.New()
			}
			w.Header().Set("X-Request-ID", id)

			reqLogger := logger.With("request_id", id, "method", r.Method, "path", r.URL.Path)
			ctx := kit.WithRequestID(r.Context(), id)
			ctx = context.WithValue(ctx, ctxKey{}, reqLogger)

			start := time.Now()
			next.ServeHTTP(w, r.WithContext(ctx))
			reqLogger.Debug("request", "duration_ms", time.Since(start).Milliseconds())
		})
	}
}

// Logger returns the per-request logger, or slog.Default().
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
