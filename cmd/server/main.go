/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the PTO service. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (development) and environment configuration
  2. Build the structured logger
  3. Initialize SQLite store
  4. Wire the domain service and API handler
  5. Start server with graceful shutdown

CONFIGURATION (environment, PTO_ prefix):
  PTO_SERVER_PORT              HTTP server port (default: 8000)
  PTO_DB_PATH                  SQLite database path (":memory:" works)
  PTO_LOG_LEVEL                zerolog level (default: info)
  PTO_LOG_FORMAT               json or console
  PTO_DEFAULT_EMPLOYEE_ID      Acting employee for /me routes
  PTO_ALLOW_EMPLOYEE_OVERRIDE  Honor override_employee_id (dev only)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (configurable timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/pto-service/api"
	"github.com/warp/pto-service/config"
	"github.com/warp/pto-service/logger"
	"github.com/warp/pto-service/pto"
	"github.com/warp/pto-service/store/sqlite"
)

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "pto-service",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := context.Background()

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		log.Error(ctx, "failed to initialize database", err)
		os.Exit(1)
	}
	defer store.Close()

	service := pto.NewService(store)
	handler := api.NewHandler(service, log, cfg.Auth.DefaultEmployeeID, cfg.Auth.AllowEmployeeOverride)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info(log.WithField(ctx, "addr", server.Addr), "server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server failed", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server forced to shutdown", err)
		os.Exit(1)
	}

	log.Info(ctx, "server stopped")
}
