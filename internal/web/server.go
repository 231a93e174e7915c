package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/epi-triangulate/internal/db"
	"github.com/epi-triangulate/internal/debug"
	"github.com/epi-triangulate/internal/web/handlers"
	"github.com/epi-triangulate/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *Config
	conn       *db.Connection
	logger     hclog.Logger
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a new web server instance. The database is opened only when a URL is configured.
func NewServer(ctx context.Context, cfg *Config, logger hclog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = debug.OrNull(logger)

	server := &Server{
		config: cfg,
		logger: logger,
	}

	if cfg.Database.URL != "" {
		conn, err := db.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if conn.Driver != db.DriverSQLite && cfg.Database.MaxConnections > 0 {
			conn.DB.SetMaxOpenConns(cfg.Database.MaxConnections)
			conn.DB.SetMaxIdleConns(cfg.Database.MaxConnections / 2)
		}
		conn.DB.SetConnMaxLifetime(time.Hour)
		server.conn = conn
		logger.Info("database connected", "driver", conn.Driver)
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// Handler returns the routed handler with its middleware.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	// Convert config for handlers (to avoid import cycle)
	handlerConfig := &handlers.Config{
		Thresholds:  s.config.Matching.Thresholds,
		Workers:     s.config.Matching.Workers,
		SortTargets: s.config.Matching.SortTargets,
		Utilization: s.config.Matching.Utilization,
	}
	handlerConfig.Features.ExportEnabled = s.config.Features.ExportEnabled
	handlerConfig.Features.PersistEnabled = s.config.Features.PersistEnabled

	apiHandler := &handlers.APIHandler{Config: handlerConfig, Logger: s.logger.Named("api")}
	if s.conn != nil {
		apiHandler.DB = s.conn.DB
		apiHandler.Driver = s.conn.Driver
	}

	s.router.HandleFunc("/health", apiHandler.Health).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/score", apiHandler.Score).Methods("GET", "OPTIONS")
	api.HandleFunc("/roles/suggest", apiHandler.Suggest).Methods("POST", "OPTIONS")
	api.HandleFunc("/resolve", apiHandler.Resolve).Methods("POST", "OPTIONS")
	api.HandleFunc("/tune", apiHandler.Tune).Methods("POST", "OPTIONS")
	api.HandleFunc("/reconcile", apiHandler.Reconcile).Methods("POST", "OPTIONS")
	api.HandleFunc("/utilization", apiHandler.Utilization).Methods("POST", "OPTIONS")

	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging(s.logger.Named("http")))

	if s.config.Auth.Enabled {
		// Apply authentication middleware to API routes only
		api.Use(middleware.Authentication(s.config.Auth.APIKey))
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", "http://"+s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		s.close()
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("server shutdown error", "error", err)
	}
	s.close()

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) close() {
	if s.conn == nil {
		return
	}
	if err := s.conn.DB.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}
}
