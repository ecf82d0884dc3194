package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/martinsuchenak/geotoolkit/internal/api"
	"github.com/martinsuchenak/geotoolkit/internal/config"
	"github.com/martinsuchenak/geotoolkit/internal/inventory"
	"github.com/martinsuchenak/geotoolkit/internal/iprange"
	"github.com/martinsuchenak/geotoolkit/internal/log"
	"github.com/martinsuchenak/geotoolkit/internal/mcp"
	"github.com/martinsuchenak/geotoolkit/internal/storage"
	"github.com/martinsuchenak/geotoolkit/internal/worker"
	"github.com/paularlott/cli"
)

const shutdownTimeout = 10 * time.Second

// ServerConfig holds configuration for running the server
type ServerConfig struct {
	Config     *config.Config
	APIHandler *api.Handler
	MCPServer  *mcp.Server
	Scheduler  *worker.Scheduler
}

// NewMux builds the routes and wraps them in the middleware chain
func NewMux(cfg *ServerConfig) http.Handler {
	mux := http.NewServeMux()

	cfg.APIHandler.RegisterRoutes(mux)
	mux.HandleFunc("/mcp", cfg.MCPServer.GetHTTPHandler())

	var handler http.Handler = mux
	if cfg.Config.IsAPIAuthEnabled() {
		handler = api.AuthMiddleware(cfg.Config.APIAuthToken, "/api/", handler)
	}
	handler = api.SecurityHeadersMiddleware(handler)
	return api.LoggingMiddleware(handler)
}

// RunServer serves until ctx is cancelled, then shuts down gracefully
func RunServer(ctx context.Context, cfg *ServerConfig) error {
	server := &http.Server{
		Addr:              cfg.Config.ListenAddr,
		Handler:           NewMux(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Scheduler != nil {
		cfg.Scheduler.Start()
		log.Info("Audit scheduler started", "schedule", cfg.Config.AuditSchedule)
		defer func() {
			cfg.Scheduler.Stop()
			log.Info("Audit scheduler stopped")
		}()
	} else {
		log.Info("Inventory audit disabled")
	}

	log.Info("Starting geotoolkit server", "addr", cfg.Config.ListenAddr)
	log.Info("API available", "url", "http://localhost"+cfg.Config.ListenAddr+"/api/")
	log.Info("MCP available", "url", "http://localhost"+cfg.Config.ListenAddr+"/mcp")
	if cfg.Config.IsAPIAuthEnabled() {
		log.Info("API authentication enabled")
	}
	cfg.MCPServer.LogStartup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

func Command() *cli.Command {
	return &cli.Command{
		Name:        "server",
		Usage:       "Start the geotoolkit server",
		Description: "Start the HTTP API and MCP endpoints, and the scheduled inventory audit when enabled",
		Flags:       config.GetFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.FromCommand(cmd)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			log.Info("Configuration loaded",
				"data_dir", cfg.DataDir,
				"listen_addr", cfg.ListenAddr,
				"policy", cfg.PolicyFile)

			store, err := storage.NewStorage(cfg.DataDir)
			if err != nil {
				log.Error("Failed to initialize storage", "error", err)
				return err
			}
			defer store.Close()
			log.Info("Storage initialized", "backend", "SQLite", "path", store.GetDatabasePath())

			validator, err := iprange.NewFromFile(cfg.PolicyFile)
			if err != nil {
				return fmt.Errorf("loading validation policy: %w", err)
			}

			svc := inventory.NewService(store, validator)

			serverConfig := &ServerConfig{
				Config:     cfg,
				APIHandler: api.NewHandler(svc),
				MCPServer:  mcp.NewServer(svc, cfg.MCPAuthToken),
			}

			if cfg.AuditEnabled {
				scheduler := worker.NewScheduler(worker.NewWorkerPool(cfg.AuditWorkers))
				if err := scheduler.AddTask(worker.AuditTaskID, "Inventory audit", cfg.AuditSchedule, worker.NewAuditTask(svc)); err != nil {
					return fmt.Errorf("scheduling inventory audit: %w", err)
				}
				serverConfig.Scheduler = scheduler
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return RunServer(ctx, serverConfig)
		},
	}
}
