// Package server constructs and starts the chat HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/Tyrowin/ratechat/internal/audit"
	"github.com/Tyrowin/ratechat/internal/rates"
)

// Server owns the hub, the dispatcher and the HTTP listener of one chat
// instance.
type Server struct {
	config     Config
	hub        *Hub
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	httpServer *http.Server

	fetcher RateFetcher
	audit   AuditLog
	names   NameGenerator
}

// Option overrides a collaborator of the Server.
type Option func(*Server)

// WithRateFetcher replaces the rates API client.
func WithRateFetcher(fetcher RateFetcher) Option {
	return func(s *Server) {
		s.fetcher = fetcher
	}
}

// WithAuditLog replaces the file-backed audit log.
func WithAuditLog(auditLog AuditLog) Option {
	return func(s *Server) {
		s.audit = auditLog
	}
}

// WithNames replaces the display name generator.
func WithNames(names NameGenerator) Option {
	return func(s *Server) {
		s.names = names
	}
}

// New builds a Server from cfg. Invalid config values are replaced with
// defaults.
func New(cfg Config, opts ...Option) *Server {
	cfg = sanitizeConfig(cfg)

	s := &Server{config: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.fetcher == nil {
		s.fetcher = rates.NewClient(
			rates.WithBaseURL(cfg.RatesAPIURL),
			rates.WithTimeout(cfg.RatesTimeout),
		)
	}
	if s.audit == nil {
		s.audit = audit.New(cfg.AuditLogPath)
	}

	s.hub = NewHub(
		WithNameGenerator(s.names),
		WithClientLimits(cfg.MaxMessageSize, cfg.RateLimit),
	)
	s.dispatcher = NewDispatcher(s.hub, NewExchangeHandler(s.fetcher, s.audit, cfg.CommandTimeout))

	origins := newOriginPolicy(cfg.AllowedOrigins)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.checkOrigin,
	}

	s.httpServer = CreateServer(cfg.Addr, s.SetupRoutes())
	return s
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() Config {
	return s.config
}

// Hub returns the client registry.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server stops. It returns nil after a
// graceful Shutdown.
func (s *Server) ListenAndServe() error {
	log.Printf("Server listening on %s", s.httpServer.Addr)
	if err := StartServer(s.httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, then closes every client.
func (s *Server) Shutdown(timeout time.Duration) error {
	httpErr := ShutdownServer(s.httpServer, timeout)
	hubErr := s.hub.Shutdown(timeout)
	return errors.Join(httpErr, hubErr)
}

// CreateServer creates and configures an HTTP server with the specified address and handler.
// It sets reasonable timeout values for production use.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServer starts the HTTP server and begins listening for connections.
func StartServer(server *http.Server) error {
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	log.Println("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
		return err
	}

	log.Println("HTTP server shutdown completed")
	return nil
}
