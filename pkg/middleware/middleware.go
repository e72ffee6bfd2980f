package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type RouteMiddleware func(next http.HandlerFunc) http.HandlerFunc

// SetRouteChain wraps a route handler with the given middlewares, the
// first middleware being the outermost.
func SetRouteChain(handler http.HandlerFunc, middlewares ...RouteMiddleware) http.HandlerFunc {
	h := handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	return h
}

type Middleware func(next http.Handler) http.Handler

// SetChain wraps the root handler with the given middlewares, the first
// middleware being the outermost.
func SetChain(handler http.Handler, middlewares ...Middleware) http.Handler {
	h := handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	return h
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

type HTTPRequestLogger struct {
	logger         *logrus.Logger
	debug          bool
	minLoggedLevel int
}

func NewHTTPRequestLogger(logger *logrus.Logger, debug bool, minLoggedLevel int) *HTTPRequestLogger {
	return &HTTPRequestLogger{
		logger:         logger,
		debug:          debug,
		minLoggedLevel: minLoggedLevel,
	}
}

func (l *HTTPRequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		if !l.debug && rec.statusCode < l.minLoggedLevel {
			return
		}

		l.logger.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.statusCode,
			"duration": time.Since(start).String(),
		}).Info()
	})
}
