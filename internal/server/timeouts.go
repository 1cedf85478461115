package server

import "time"

const (
	readTimeout     = 0 // websocket connections are long-lived
	writeTimeout    = 0
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)
