// Package httpserver wraps http.Server with the timeouts every
// deployment needs.
package httpserver

import (
	"net/http"
	"time"
)

// New returns an http.Server for addr with read/write timeouts set.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
