package middleware

import (
	"context"
	"net/http"

	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

const (
	TraceHeader     = "X-Trace-ID"
	maxTraceIDBytes = 128
)

// RequestID accepts the caller's trace id or mints one. The id is stored
// under chi's request id key, so chiMiddleware.GetReqID and the logging
// middleware both see it, and it is echoed in the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" || len(traceID) > maxTraceIDBytes {
			traceID = uuid.NewString()
		}
		w.Header().Set(TraceHeader, traceID)

		ctx := context.WithValue(r.Context(), chiMiddleware.RequestIDKey, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
