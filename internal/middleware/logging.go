package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// slowRequest is the elapsed time past which an otherwise fine request is
// logged at warn.
const slowRequest = time.Second

// responseTrap captures the status code and body size on the way out.
type responseTrap struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (t *responseTrap) WriteHeader(code int) {
	t.status = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTrap) Write(p []byte) (int, error) {
	n, err := t.ResponseWriter.Write(p)
	t.bytes += n
	return n, err
}

// RequestLogger logs one line per request: method, path, status, response
// size, elapsed time, and client IP. Server errors log at error, client
// errors and slow requests at warn.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			trap := &responseTrap{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(trap, r)

			elapsed := time.Since(start)
			level := slog.LevelInfo
			switch {
			case trap.status >= 500:
				level = slog.LevelError
			case trap.status >= 400 || elapsed >= slowRequest:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", trap.status),
				slog.Int("bytes", trap.bytes),
				slog.Duration("elapsed", elapsed),
				slog.String("ip", RealIP(r)),
			)
		})
	}
}
