package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
	"go.temporal.io/sdk/client"

	"office-action-orchestrator/internal/config"
	"office-action-orchestrator/internal/domain"
	"office-action-orchestrator/internal/events"
	"office-action-orchestrator/internal/logging"
	"office-action-orchestrator/internal/storage"
	appTemporal "office-action-orchestrator/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := logging.Setup("event-handler", cfg.Development(), cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("setup logging")
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer store.Close()

	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
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

	starter := &appTemporal.Starter{
		Client:    temporalClient,
		TaskQueue: cfg.TemporalTaskQueue,
		IDPrefix:  cfg.WorkflowIDPrefix,
	}

	source := events.NewMinioUploadEventSource(minioClient, cfg.MinioUploadBucket, "", "")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("bucket", cfg.MinioUploadBucket).Msg("event-handler listening for object-created events")
	err = source.Run(ctx, func(parent context.Context, event events.UploadEvent) error {
		execCtx, cancel := context.WithTimeout(parent, 15*time.Second)
		defer cancel()

		rec, err := store.GetUpload(execCtx, event.UploadID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Str("object", event.ObjectKey).Msg("no upload recorded for object")
			return nil
		}
		if err != nil {
			return err
		}

		workflowID, err := starter.StartClaimsUpload(execCtx, appTemporal.ClaimsUploadInput{
			UploadID:      rec.ID,
			ApplicationID: rec.ApplicationID,
			Filename:      event.Filename,
			ObjectKey:     event.ObjectKey,
		})
		if err != nil {
			return err
		}
		log.Info().Str("workflow_id", workflowID).Str("object", event.ObjectKey).Msg("claims upload workflow started")
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("event-handler stopped with error")
	}
}
