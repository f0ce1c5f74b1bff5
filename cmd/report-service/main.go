package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/medflow/report-explainer/internal/reports/events"
	"github.com/medflow/report-explainer/internal/reports/extractor"
	"github.com/medflow/report-explainer/internal/reports/generative"
	"github.com/medflow/report-explainer/internal/reports/handler"
	"github.com/medflow/report-explainer/internal/reports/pipeline"
	"github.com/medflow/report-explainer/pkg/config"
	"github.com/medflow/report-explainer/pkg/httputil"
	"github.com/medflow/report-explainer/pkg/i18n"
	"github.com/medflow/report-explainer/pkg/logger"
	"github.com/medflow/report-explainer/pkg/messaging"
)

func main() {
	// Load configuration with validation (missing provider keys are fatal)
	cfg, err := config.LoadWithValidation("report-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("report-service", cfg.Server.Environment)
	log.Info().
		Str("text_provider", cfg.AI.TextProvider).
		Str("image_provider", cfg.AI.ImageProvider).
		Msg("starting Report Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize generative clients
	textClient, err := generative.NewTextClient(ctx, &cfg.AI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create text client")
	}
	imageClient, err := generative.NewImageClient(ctx, &cfg.AI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create image client")
	}

	// Connect to RabbitMQ when outcome events are enabled
	var (
		rmq  *messaging.RabbitMQ
		sink pipeline.EventSink
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(ctx, &cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err := events.NewReportEventPublisher(rmq, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		sink = publisher
	}

	deps := pipeline.Deps{
		Extractor: extractor.NewDefaultRegistry(log),
		Fetcher:   extractor.NewFetcher(&cfg.Upload),
		Text:      textClient,
		Image:     imageClient,
		Events:    sink,
	}

	orchestrator := pipeline.NewOrchestrator(deps, pipeline.SettingsFromConfig(&cfg.Pipeline, &cfg.AI), log)
	reportHandler := handler.NewHandler(orchestrator, &cfg.Upload, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "Accept-Language"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// i18n middleware - extract locale from Accept-Language header
	r.Use(i18n.Middleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "healthy",
			"service": "report-service",
		}
		if rmq != nil {
			body["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, body)
	})

	r.Get("/", reportHandler.Welcome)
	r.Post("/chat", reportHandler.Explain)
	r.Get("/api/additional-info", reportHandler.AdditionalInfo)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	// Graceful shutdown lets in-flight pipelines finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
