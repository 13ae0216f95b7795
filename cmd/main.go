package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-speech-proxy-service/internal/app"
	"ai-speech-proxy-service/internal/audit"
	"ai-speech-proxy-service/internal/auth"
	"ai-speech-proxy-service/internal/config"
	"ai-speech-proxy-service/internal/events"
	"ai-speech-proxy-service/internal/health"
	httpapi "ai-speech-proxy-service/internal/http"
	"ai-speech-proxy-service/internal/observability"
	"ai-speech-proxy-service/internal/service/audio"
	"ai-speech-proxy-service/internal/service/router"
	"ai-speech-proxy-service/internal/service/stt"
	"ai-speech-proxy-service/internal/service/stt/google"
	"ai-speech-proxy-service/internal/service/stt/local"
	"ai-speech-proxy-service/internal/service/stt/openai"
	"ai-speech-proxy-service/internal/usage"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	clients, err := config.LoadClients(cfg.Storage.ClientsFile)
	if err != nil {
		application.Logger.Fatal().Err(err).Str("path", cfg.Storage.ClientsFile).Msg("Failed to load client registry")
	}

	auditLog := audit.New(cfg.Storage.AuditLog)
	registry := auth.NewRegistry(clients, auditLog)
	ledger := usage.NewLedger(cfg.Storage.LedgerDir)
	recorder := audio.NewRecorder(cfg.Storage.RecordingsDir, auditLog)

	// Create Kafka publisher with separate topics for usage and transcript events
	publisher := events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicUsage:      cfg.Kafka.TopicUsage,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		Principal:       cfg.Service.Principal,
	})
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := health.NewMonitor(cfg.Whisper.Host, cfg.Health.Interval, cfg.Health.Timeout)
	go monitor.Start(ctx)

	localBackend := local.New(local.Config{
		Host:          cfg.Whisper.Host,
		Model:         cfg.Whisper.Model,
		Language:      cfg.Whisper.Language,
		MetadataLines: cfg.Whisper.MetadataLines,
		Timeout:       cfg.BackendTimeout,
	})
	cloudBackend := buildCloudBackend(ctx, cfg, application)

	engine := router.NewEngine(monitor, localBackend, cloudBackend, ledger, auditLog, publisher, cfg.BackendTimeout)

	api := httpapi.NewServer(registry, engine, monitor, ledger, recorder)
	server := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      api.NewRouter(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	obsServer := observability.NewServer(cfg.Service.MetricsAddr)
	obsServer.Start()

	go func() {
		application.Logger.Info().Str("port", cfg.Service.HTTPPort).Msg("Speech Proxy service started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			application.Logger.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	application.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error().Err(err).Msg("HTTP shutdown error")
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error().Err(err).Msg("Observability shutdown error")
	}
}

// buildCloudBackend selects the cloud fallback provider from configuration.
func buildCloudBackend(ctx context.Context, cfg *config.Configuration, application *app.Application) stt.Backend {
	switch cfg.Cloud.Provider {
	case "google":
		backend, err := google.New(ctx, cfg.Whisper.Language)
		if err != nil {
			application.Logger.Fatal().Err(err).Msg("Failed to create Google STT client")
		}
		return backend
	default:
		return openai.New(openai.Config{
			APIURL:  cfg.Cloud.APIURL,
			APIKey:  cfg.Cloud.APIKey,
			Timeout: cfg.BackendTimeout,
		})
	}
}
