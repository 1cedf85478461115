package http

import (
	"encoding/json"
	nethttp "net/http"

	"github.com/owlcms/tracker-core/internal/hub"
	"github.com/owlcms/tracker-core/internal/logging"
)

// Handler wires the health and readiness probes to the hub.
type Handler struct {
	hub    *hub.Hub
	logger logging.Logger
}

// NewHandler constructs a Handler with defaults.
func NewHandler(h *hub.Hub, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{hub: h, logger: logger}
}

// Health reports the service health.
func (h *Handler) Health(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodGet {
		writeError(w, nethttp.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Ready reports readiness for traffic: the hub must hold both a database and
// translations.
func (h *Handler) Ready(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodGet {
		writeError(w, nethttp.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}
	if h.hub != nil && h.hub.IsReady() {
		writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ready"}, h.logger)
		return
	}
	writeJSON(w, nethttp.StatusServiceUnavailable, map[string]string{"status": "waiting"}, h.logger)
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any, logger logging.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Warn("response encode failed", logging.FieldError, err)
	}
}

func writeError(w nethttp.ResponseWriter, status int, message string, logger logging.Logger) {
	writeJSON(w, status, map[string]string{"error": message}, logger)
}
