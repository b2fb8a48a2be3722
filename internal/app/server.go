package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/example/parking-ledger/internal/config"
	"github.com/example/parking-ledger/internal/identity"
	httptransport "github.com/example/parking-ledger/internal/http"
	"github.com/example/parking-ledger/internal/persistence"
)

const shutdownTimeout = 10 * time.Second

// NewHandler builds the HTTP API over services. Requests authenticate with tokens accepted by verifier.
func NewHandler(services *Services, verifier httptransport.TokenVerifier, corsOrigins []string, logger *slog.Logger) http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Roles:        httptransport.NewRoleHandlerWithLogger(services.Access, logger),
		Spaces:       httptransport.NewSpaceHandlerWithLogger(services.Spaces, logger),
		Reservations: httptransport.NewReservationHandlerWithLogger(services.Reservations, logger),
		Violations:   httptransport.NewViolationHandlerWithLogger(services.Violations, logger),
		Verifier:     verifier,
		Logger:       logger,
		CORSOrigins:  corsOrigins,
	})
}

// Server runs the HTTP API until its context is cancelled.
type Server struct {
	httpServer *http.Server
	store      persistence.Store
	logger     *slog.Logger
}

// NewServer opens the configured store and assembles the registries and HTTP API.
func NewServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	verifier, err := identity.NewVerifier([]byte(cfg.TokenSecret), nil)
	if err != nil {
		return nil, fmt.Errorf("build token verifier: %w", err)
	}

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	services := NewServices(store, ServiceOptions{GraceWindow: cfg.CheckInGrace, Logger: logger})
	handler := NewHandler(services, verifier, cfg.CORSOrigins, logger)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		store:  store,
		logger: logger,
	}, nil
}

// Handler exposes the assembled router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves on the configured address until ctx is done, then drains and closes the store.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		_ = s.store.Close()
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	defer func() {
		if cerr := s.store.Close(); cerr != nil {
			s.logger.Error("failed to close storage", "error", cerr)
		}
	}()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	s.logger.Info("parking ledger API listening", "addr", listener.Addr().String())
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	<-shutdownDone
	return nil
}
