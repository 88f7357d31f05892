package httpserver

import (
	"net/http"
	"time"

	"hrcore/internal/platform/config"
)

// writeSlack lets a handler that hit the request timeout still write its
// error response before the connection is cut.
const writeSlack = 5 * time.Second

// New builds the HTTP server from the server config. The write timeout tracks
// the request timeout so the per-request deadline fires first.
func New(cfg config.Server, handler http.Handler) *http.Server {
	writeTimeout := 45 * time.Second
	if cfg.RequestTimeout > 0 {
		writeTimeout = cfg.RequestTimeout + writeSlack
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}
