package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

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
	if err := logging.Setup("worker", cfg.Development(), cfg.LogLevel); err != nil {
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

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect temporal")
	}
	defer temporalClient.Close()

	var backendOpts []backend.Option
	trackerOpts := []tracker.Option{
		tracker.WithPollConcurrency(cfg.StatusPollConcurrency),
		tracker.WithMaxUploadBytes(cfg.AllowedUploadBytes),
	}
	if cfg.MetricsEnabled {
		backendOpts = append(backendOpts, backend.WithObserver(metrics.ObserveBackendCall))
		trackerOpts = append(trackerOpts, tracker.WithObserver(metrics.Observer{}))

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}
	be := backend.NewHTTPClient(cfg.BackendBaseURL, cfg.BackendTimeout(), backendOpts...)
	activities := &appTemporal.Activities{
		Tracker: tracker.NewService(store, be, blobs, trackerOpts...),
	}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.ArtifactCollectionWorkflow, workflow.RegisterOptions{Name: appTemporal.ArtifactCollectionWorkflowName})
	w.RegisterWorkflowWithOptions(appTemporal.ClaimsUploadWorkflow, workflow.RegisterOptions{Name: appTemporal.ClaimsUploadWorkflowName})
	w.RegisterWorkflowWithOptions(appTemporal.DraftAssemblyWorkflow, workflow.RegisterOptions{Name: appTemporal.DraftAssemblyWorkflowName})
	w.RegisterActivity(activities.CollectArtifactActivity)
	w.RegisterActivity(activities.ForwardClaimsUploadActivity)
	w.RegisterActivity(activities.AbandonArtifactActivity)
	w.RegisterActivity(activities.CheckGateActivity)
	w.RegisterActivity(activities.GenerateDraftActivity)
	w.RegisterActivity(activities.RecordDraftActivity)

	log.Info().Str("task_queue", cfg.TemporalTaskQueue).Msg("worker running")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal().Err(err).Msg("worker stopped with error")
	}
}
