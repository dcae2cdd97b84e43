package httputil

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// MiddlewareLogging logs method, path, status, size and duration of every
// request. WebSocket upgrades are passed through unwrapped so the
// connection can be hijacked; they are logged when the socket closes.
func MiddlewareLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID, _ := FromContext(r.Context())

		if isUpgrade(r) {
			next.ServeHTTP(w, r)
			slog.Info("ws session closed",
				"req_id", reqID,
				"path", r.URL.Path,
				"duration", time.Since(start).String(),
			)
			return
		}

		lrw := &logResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)

		slog.Info("http request",
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", lrw.status,
			"bytes", lrw.bytes,
			"duration", time.Since(start).String(),
		)
	})
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

type logResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *logResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *logResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n

	return n, err
}
