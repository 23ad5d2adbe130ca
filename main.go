package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asock/catio-cam/internal/database"
	"github.com/asock/catio-cam/internal/handlers"
	"github.com/asock/catio-cam/internal/hub"
	"github.com/asock/catio-cam/internal/ingest"
	"github.com/asock/catio-cam/internal/janitor"
	"github.com/asock/catio-cam/internal/logging"
	"github.com/asock/catio-cam/internal/media"
	"github.com/asock/catio-cam/internal/middleware"
	"github.com/asock/catio-cam/internal/startup"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Check media tool availability
	startup.LogMediaToolsInit()

	// Live update hub
	broadcast := hub.New()

	// Ingest pipeline
	inspector := media.NewFFProbe(config.ProbeTimeout)
	renderer := media.NewFFMpegRenderer(config.ProbeTimeout)
	pipeline := ingest.New(db, inspector, renderer, broadcast, config)

	// Background cleanup of orphaned blobs, stale temp files, and
	// expired sessions
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	jan := janitor.New(db, config.MediaDir, config.ThumbnailDir, config.JanitorInterval)
	go jan.Run(janitorCtx)

	// Initialize handlers and routes
	h := handlers.New(db, pipeline, broadcast, config)
	router := h.Router(broadcast.ServeWS)

	// Middleware: session resolution, then metrics, logging, compression
	authedRouter := h.WithUser(router)

	metricsConfig := middleware.DefaultMetricsConfig()
	meteredHandler := middleware.Metrics(metricsConfig)(authedRouter)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(meteredHandler)

	compressionConfig := middleware.DefaultCompressionConfig()
	handler := middleware.Compression(compressionConfig)(loggedHandler)

	// Create server. WriteTimeout stays zero so long media streams are
	// not cut off; the streaming writer enforces its own deadlines.
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics server on its own port, never exposed to the internet
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:    ":" + config.MetricsPort,
			Handler: metricsMux,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()

		// Keep the connection-pool gauge current
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			for range ticker.C {
				db.UpdateDBMetrics()
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, broadcast, stopJanitor)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func handleShutdown(srv, metricsSrv *http.Server, broadcast *hub.Hub, stopJanitor context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping janitor")
	stopJanitor()
	startup.LogShutdownStepComplete("Janitor stopped")

	startup.LogShutdownStep("Closing live connections")
	broadcast.CloseAll()
	startup.LogShutdownStepComplete("Live connections closed")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	startup.LogShutdownComplete()
}
