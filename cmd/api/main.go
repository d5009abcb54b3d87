package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.temporal.io/sdk/client"

	"office-action-orchestrator/internal/api"
	"office-action-orchestrator/internal/backend"
	"office-action-orchestrator/internal/config"
	"office-action-orchestrator/internal/logging"
	"office-action-orchestrator/internal/metrics"
	"office-action-orchestrator/internal/storage"
	appTemporal "office-action-orchestrator/internal/temporal"
	"office-action-orchestrator/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := logging.Setup("api", cfg.Development(), cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("setup logging")
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer store.Close()

	blobs, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioUploadBucket, cfg.MinioDraftBucket)
	if err != nil {
		log.Fatal().Err(err).Msg("connect minio")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres ping")
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect temporal")
	}
	defer temporalClient.Close()

	starter := &appTemporal.Starter{
		Client:    temporalClient,
		TaskQueue: cfg.TemporalTaskQueue,
		IDPrefix:  cfg.WorkflowIDPrefix,
	}

	var backendOpts []backend.Option
	trackerOpts := []tracker.Option{
		tracker.WithCollector(starter),
		tracker.WithPollConcurrency(cfg.StatusPollConcurrency),
		tracker.WithMaxUploadBytes(cfg.AllowedUploadBytes),
	}
	if cfg.MetricsEnabled {
		backendOpts = append(backendOpts, backend.WithObserver(metrics.ObserveBackendCall))
		trackerOpts = append(trackerOpts, tracker.WithObserver(metrics.Observer{}))
	}
	be := backend.NewHTTPClient(cfg.BackendBaseURL, cfg.BackendTimeout(), backendOpts...)
	svc := tracker.NewService(store, be, blobs, trackerOpts...)

	h := api.NewHandler(svc, starter,
		api.WithReadinessCheck("postgres", store),
		api.WithReadinessCheck("minio", blobs),
		api.WithMaxUploadBytes(cfg.AllowedUploadBytes),
		api.WithMetrics(cfg.MetricsEnabled),
	)

	// Draft generation waits on the workflow, so there is no write timeout.
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
