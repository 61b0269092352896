package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/oneaccess/pkg/logger"

	chiMiddleware "github.com/go-chi/chi/middleware"
)

// sensitiveFields are matched as substrings of lower-cased header names and
// JSON keys. Access tokens and reader nonces are bearer material for their TTL,
// and visitor phone numbers are personal data.
var sensitiveFields = []string{
	"token",
	"authorization",
	"cookie",
	"nonce",
	"secret",
	"api_key",
	"private_key",
	"credential",
	"phone",
}

const (
	filtered      = "[FILTERED]"
	maxLoggedBody = 64 << 10
)

// quietPaths are probed by load balancers and logged at debug only.
var quietPaths = map[string]bool{
	"/health":        true,
	"/ping":          true,
	"/api/v1/health": true,
	"/api/v1/ping":   true,
}

// LoggingMiddleware installs a request-scoped logger carrying the trace id and
// logs each request and response with sensitive values masked.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lg := logger.FromOr(r.Context(), base)
			if traceID := chiMiddleware.GetReqID(r.Context()); traceID != "" {
				lg = lg.With("trace_id", traceID)
			}
			ctx := logger.Into(r.Context(), lg)
			r = r.WithContext(ctx)

			level := slog.LevelInfo
			if quietPaths[r.URL.Path] {
				level = slog.LevelDebug
			}

			body := captureBody(r)
			lg.Log(ctx, level, "incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", maskHeaders(r.Header),
				"body", maskBody(body),
			)

			rec := &recordingWriter{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status()
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			} else if status >= http.StatusBadRequest {
				level = slog.LevelWarn
			}
			lg.Log(ctx, level, "response",
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.size,
				"body", maskBody(rec.body.Bytes()),
			)
		})
	}
}

// captureBody reads up to maxLoggedBody bytes and puts them back in front of
// whatever is left, so handlers still see the full body.
func captureBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}
	return head
}

type replayBody struct {
	io.Reader
	io.Closer
}

// recordingWriter keeps the status and the first maxLoggedBody bytes written.
type recordingWriter struct {
	http.ResponseWriter
	code int
	size int
	body bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	if rw.code == 0 {
		rw.code = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - rw.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		rw.body.Write(b[:room])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *recordingWriter) status() int {
	if rw.code == 0 {
		return http.StatusOK
	}
	return rw.code
}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(name, field) {
			return true
		}
	}
	return false
}

func maskHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// maskBody renders a JSON body with sensitive keys replaced at any depth.
// Non-JSON bodies are dropped entirely if they mention a sensitive field.
func maskBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		if isSensitive(string(body)) {
			return filtered
		}
		return string(body)
	}

	masked, err := json.Marshal(maskValue(doc))
	if err != nil {
		return filtered
	}
	return string(masked)
}

func maskValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for key, value := range t {
			if isSensitive(key) {
				out[key] = filtered
				continue
			}
			out[key] = maskValue(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = maskValue(item)
		}
		return out
	default:
		return v
	}
}
