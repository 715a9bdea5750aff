// Package trace logs every HTTP request and records its latency.
package trace

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"expensy/internal/log"
	"expensy/internal/metrics"
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.Logger
	requests  atomic.Int64
}

// NewMiddleware creates a new trace middleware. extractIP may be nil.
func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = log.Discard()
	}
	return &Middleware{
		extractIP: extractIP,
		logger:    logger.WithComponent(log.ComponentTrace),
	}
}

// Handler logs the start and end of each request. It expects chi's
// RequestID middleware to run first.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	structured := log.NewStructuredLogger(m.logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.requests.Add(1)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		ctx := r.Context()
		m.logger.DebugContext(ctx, "HTTP request started",
			log.FieldRequestID, RequestID(ctx),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP,
			"content_length", r.ContentLength)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		route := routePattern(r)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, statusClass(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		structured.LogHTTPEnd(ctx, r, status, elapsed.Milliseconds(), clientIP)
	})
}

// Requests returns how many requests have been seen.
func (m *Middleware) Requests() int64 {
	return m.requests.Load()
}

// RequestID returns the id chi assigned to the request, if any.
func RequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// routePattern keeps label cardinality bounded: ids in paths collapse to
// their route pattern.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
