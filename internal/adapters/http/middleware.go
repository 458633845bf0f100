package httpadapter

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

type requestIDContextKey struct{}

func requestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

// requestIDMiddleware assigns every import request an id that survives into
// the job record's log lines, so a queued import can be traced from the
// original HTTP call through the worker.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), requestIDContextKey{}, requestID),
		))
	})
}

// accessLogMiddleware writes one line per request. Sync imports block on the
// model for most of their duration, so elapsed_ms is the number operators
// watch here.
func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		jw := &jsonResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(jw, r)

		client := r.RemoteAddr
		if host, _, err := net.SplitHostPort(client); err == nil {
			client = host
		}

		slog.Log(r.Context(), levelForStatus(jw.status), "http request",
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", jw.status,
			"bytes", jw.written,
			"elapsed_ms", time.Since(started).Milliseconds(),
			"client", client,
		)
	})
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// jsonResponseWriter records status and size for the access log. Every
// endpoint here answers with a small JSON body, so the streaming interfaces
// (Flusher, Hijacker) are deliberately not forwarded.
type jsonResponseWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *jsonResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *jsonResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}
