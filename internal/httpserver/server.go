package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ShutdownTimeout controls how long graceful shutdowns may take before the
// process gives up on in-flight requests.
const ShutdownTimeout = 10 * time.Second

// Server wraps the http.Server with timeouts suited to an upload-heavy API.
type Server struct {
	inner *http.Server
}

// New constructs a server listening on the provided port. The write timeout
// is generous because video uploads stream through request bodies.
func New(port int, handler http.Handler) *Server {
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       2 * time.Minute,
		},
	}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully terminates the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
