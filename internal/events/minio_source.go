package events

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/rs/zerolog/log"
)

const objectCreatedEvent = "s3:ObjectCreated:*"

// UploadEvent announces a claims file that landed in the upload bucket.
type UploadEvent struct {
	UploadID  string
	Filename  string
	ObjectKey string
	EventName string
	Size      int64
}

type UploadEventSource interface {
	Run(ctx context.Context, handler func(context.Context, UploadEvent) error) error
}

type MinioUploadEventSource struct {
	client *minio.Client
	bucket string
	prefix string
	suffix string
}

func NewMinioUploadEventSource(client *minio.Client, bucket string, prefix string, suffix string) *MinioUploadEventSource {
	return &MinioUploadEventSource{
		client: client,
		bucket: bucket,
		prefix: prefix,
		suffix: suffix,
	}
}

// Run blocks until ctx is done or the notification stream breaks. A handler
// error stops the source so the caller can restart from a clean state.
func (s *MinioUploadEventSource) Run(ctx context.Context, handler func(context.Context, UploadEvent) error) error {
	notificationCh := s.client.ListenBucketNotification(ctx, s.bucket, s.prefix, s.suffix, []string{objectCreatedEvent})
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-notificationCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream closed")
			}
			if info.Err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream error: %w", info.Err)
			}
			for _, event := range uploadEvents(info) {
				if err := handler(ctx, event); err != nil {
					return err
				}
			}
		}
	}
}

// uploadEvents keeps the records whose keys look like uploadID/filename.
// Anything else in the bucket is logged and skipped.
func uploadEvents(info notification.Info) []UploadEvent {
	out := make([]UploadEvent, 0, len(info.Records))
	for _, record := range info.Records {
		objectKey, err := decodeObjectKey(record.S3.Object.Key)
		if err != nil {
			log.Warn().Err(err).Str("key", record.S3.Object.Key).Msg("skipping notification")
			continue
		}
		uploadID, filename, err := parseObjectKey(objectKey)
		if err != nil {
			log.Warn().Err(err).Str("key", objectKey).Msg("skipping notification")
			continue
		}
		out = append(out, UploadEvent{
			UploadID:  uploadID,
			Filename:  filename,
			ObjectKey: objectKey,
			EventName: record.EventName,
			Size:      record.S3.Object.Size,
		})
	}
	return out
}

func decodeObjectKey(encoded string) (string, error) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", err
	}
	decoded = strings.TrimSpace(decoded)
	if decoded == "" {
		return "", fmt.Errorf("object key is empty")
	}
	return decoded, nil
}

func parseObjectKey(objectKey string) (string, string, error) {
	cleaned := strings.Trim(strings.ReplaceAll(objectKey, "\\", "/"), "/")
	parts := strings.Split(cleaned, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("object key %q does not match upload_id/filename", objectKey)
	}
	uploadID := strings.TrimSpace(parts[0])
	filename := strings.TrimSpace(parts[1])
	if uploadID == "" || filename == "" {
		return "", "", fmt.Errorf("object key %q missing upload id or filename", objectKey)
	}
	if _, err := uuid.Parse(uploadID); err != nil {
		return "", "", fmt.Errorf("object key %q: upload id is not a uuid", objectKey)
	}
	return uploadID, filename, nil
}
