package ui

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/pkg/db"
	"github.com/retroam/agileai/pkg/log"
)

// Server hosts the dashboard and its API.
type Server struct {
	Logger log.Logger
	Config *cfg.Config
	MySQL  *db.Mysql
	server *http.Server
	port   int
}

func NewServer(logger log.Logger, config *cfg.Config, mysql *db.Mysql, port int) (*Server, error) {
	if port <= 0 {
		port = config.Server.Port
	}
	return &Server{
		Logger: logger,
		Config: config,
		MySQL:  mysql,
		port:   port,
	}, nil
}

// Start builds the handler and serves until Stop or a listener error.
func (s *Server) Start() error {
	handler, err := NewHandler(s.Logger, s.Config, s.MySQL)
	if err != nil {
		return fmt.Errorf("failed to create dashboard handler: %w", err)
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Chat answers wait on two model calls, so writes get a long leash.
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.Logger.Info(context.Background(), "Starting dashboard server on port %d", s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.Logger.Info(ctx, "Shutting down dashboard server")
		return s.server.Shutdown(ctx)
	}
	return nil
}
