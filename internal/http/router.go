package http

import nethttp "net/http"

// NewRouter registers HTTP routes on a ServeMux: the probes plus the
// producer websocket endpoint.
func NewRouter(handler *Handler, wsEndpoint string, wsHandler nethttp.Handler) nethttp.Handler {
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/ready", handler.Ready)
	if wsHandler != nil {
		mux.Handle(wsEndpoint, wsHandler)
	}
	return mux
}
