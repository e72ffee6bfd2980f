package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

// HTTPResponseTraceInjection exposes the active trace id on the
// response so a failed request can be correlated with its trace.
func HTTPResponseTraceInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())
		if span.SpanContext().HasTraceID() {
			w.Header().Set("X-Trace-Id", span.SpanContext().TraceID().String())
		}

		next.ServeHTTP(w, r)
	})
}
