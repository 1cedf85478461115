package http

import (
	"crypto/rand"
	"encoding/hex"
	nethttp "net/http"
	"regexp"
	"time"

	"github.com/owlcms/tracker-core/internal/logging"
)

// LoggingMiddleware wraps the handler with request logging and request ID
// support. Websocket upgrades pass through untouched.
func LoggingMiddleware(logger logging.Logger, next nethttp.Handler) nethttp.Handler {
	if logger == nil {
		logger = logging.Discard()
	}

	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if websocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		reqID := sanitizeRequestID(r.Header.Get("X-Request-ID"))
		w.Header().Set("X-Request-ID", reqID)

		ww := &responseWriter{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(ww, r)

		logger.Debug("request complete",
			logging.FieldRequestID, reqID,
			logging.FieldMethod, r.Method,
			logging.FieldPath, r.URL.Path,
			logging.FieldStatusCode, ww.status,
			logging.FieldDurationMS, time.Since(start).Milliseconds(),
		)
	})
}

func websocketUpgrade(r *nethttp.Request) bool {
	return r.Header.Get("Upgrade") == "websocket"
}

type responseWriter struct {
	nethttp.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

func sanitizeRequestID(incoming string) string {
	if incoming != "" && requestIDPattern.MatchString(incoming) {
		return incoming
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("20060102150405")))
	}
	return hex.EncodeToString(b[:])
}
