package server

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"cache-mate/internal/common/logging"
)

// Server represents an HTTP server
type Server struct {
	srv     *http.Server
	tlsCert string
	tlsKey  string
	errCh   chan error
	logger  logging.Logger
}

// New creates a new server instance
func New(handler http.Handler, port, tlsCert, tlsKey string) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		tlsCert: tlsCert,
		tlsKey:  tlsKey,
		errCh:   make(chan error, 1),
		logger:  logging.Component("server"),
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Errors delivers the error that stopped the listener, if any
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Start starts the server
func (s *Server) Start() error {
	listen := s.srv.ListenAndServe
	if s.tlsCert != "" && s.tlsKey != "" {
		s.srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		listen = func() error {
			return s.srv.ListenAndServeTLS(s.tlsCert, s.tlsKey)
		}
	}

	s.logger.Info("Server listening",
		logging.String("addr", s.srv.Addr),
		logging.Bool("tls", s.srv.TLSConfig != nil),
	)

	go func() {
		if err := listen(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server stopped unexpectedly", err)
			s.errCh <- err
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
