package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bigmove/backend/internal/audit"
)

// BasicAuthMiddleware guards the listed methods, or every method when none
// are listed.
func BasicAuthMiddleware(user, pass string, methods ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(methods) > 0 && !methodInList(r.Method, methods) {
				next.ServeHTTP(w, r)
				return
			}
			u, p, ok := r.BasicAuth()
			if !ok || !equal(u, user) || !equal(p, pass) {
				w.Header().Set("WWW-Authenticate", `Basic realm="bigmove-admin"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// LogMiddleware logs every request and sends the listed methods to the
// audit pool.
func LogMiddleware(auditPool *audit.AuditWorkerPool, methods ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			slog.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)

			if auditPool != nil && methodInList(r.Method, methods) {
				auditPool.Log(audit.AuditLog{
					Timestamp: time.Now().UTC(),
					Endpoint:  r.URL.Path,
					Request:   r.Method + " " + r.URL.String(),
					Response:  http.StatusText(status),
					Message:   "Request handled",
				})
			}
		})
	}
}

func methodInList(method string, methods []string) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}
