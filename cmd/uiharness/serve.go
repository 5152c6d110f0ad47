package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hairizuan-noorazman/ui-harness/cmd/uiharness/handlers"
	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/hairizuan-noorazman/ui-harness/storage"
	"github.com/hairizuan-noorazman/ui-harness/testrun"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect recorded test runs",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the run history HTTP server",
	RunE:  runServer,
}

func init() {
	reportCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
}

// routerDeps are the stores and services the report API reads from.
type routerDeps struct {
	runs     testrun.Store
	results  testrun.ResultStore
	blobs    storage.BlobStorage
	db       handlers.Pinger
	registry *prometheus.Registry
	logger   logger.Logger
}

// newRouter builds the read-only report API.
func newRouter(deps routerDeps) http.Handler {
	router := mux.NewRouter()
	router.Use(handlers.RequestLogger(deps.logger), handlers.ReadOnly)

	// Health check and metrics
	router.Handle("/health", http.HandlerFunc(handlers.NewHealthHandler(deps.db).Check)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()

	runHandler := handlers.NewRunHandler(deps.runs, deps.results, deps.logger)
	apiRouter.HandleFunc("/runs", runHandler.List).Methods(http.MethodGet)
	apiRouter.HandleFunc("/runs/{run_id}", runHandler.GetByID).Methods(http.MethodGet)
	apiRouter.HandleFunc("/runs/{run_id}/results", runHandler.ListResults).Methods(http.MethodGet)
	apiRouter.HandleFunc("/results", runHandler.ScenarioHistory).Methods(http.MethodGet)

	if deps.blobs != nil {
		artifactHandler := handlers.NewArtifactHandler(deps.blobs, deps.logger)
		apiRouter.HandleFunc("/artifacts/{path:.+}", artifactHandler.Get).Methods(http.MethodGet)
	}

	requests := promauto.With(deps.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "uiharness",
		Name:      "http_requests_total",
		Help:      "Report API requests by status code and method.",
	}, []string{"code", "method"})

	return promhttp.InstrumentHandlerCounter(requests, router)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.NewLogrusLogger(cfg.Log.Level, cfg.Log.Format)
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	// Connect to database
	db, sqlDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	log.Info(ctx, "database connected", map[string]interface{}{
		"driver": cfg.Database.Driver,
	})

	blobs, err := storage.New(ctx, cfg.Storage.blobStorage())
	if err != nil {
		return fmt.Errorf("failed to initialize artifact storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := newRouter(routerDeps{
		runs:     testrun.NewMySQLStore(db, log),
		results:  testrun.NewMySQLResultStore(db, log),
		blobs:    blobs,
		db:       sqlDB,
		registry: registry,
		logger:   log,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server", nil)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(ctx, "server stopped", nil)
	return nil
}
