package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const DraftContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// MinioStore holds raw claims uploads and generated response drafts in two
// buckets.
type MinioStore struct {
	client       *minio.Client
	uploadBucket string
	draftBucket  string
}

func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool, uploadBucket, draftBucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	for _, bucket := range []string{uploadBucket, draftBucket} {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, err
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("make bucket %s: %w", bucket, err)
			}
		}
	}

	return &MinioStore{client: client, uploadBucket: uploadBucket, draftBucket: draftBucket}, nil
}

func UploadObjectKey(uploadID, filename string) string {
	return path.Join(uploadID, path.Base(filename))
}

func DraftObjectKey(applicationID, draftID string) string {
	return path.Join(applicationID, draftID+".docx")
}

func (m *MinioStore) PutUpload(ctx context.Context, uploadID, filename, contentType string, content []byte) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objectKey := UploadObjectKey(uploadID, filename)
	if err := m.put(ctx, m.uploadBucket, objectKey, contentType, content); err != nil {
		return "", err
	}
	return objectKey, nil
}

func (m *MinioStore) GetUpload(ctx context.Context, objectKey string) ([]byte, error) {
	return m.get(ctx, m.uploadBucket, objectKey)
}

func (m *MinioStore) PutDraft(ctx context.Context, applicationID, draftID string, content []byte) (string, error) {
	objectKey := DraftObjectKey(applicationID, draftID)
	if err := m.put(ctx, m.draftBucket, objectKey, DraftContentType, content); err != nil {
		return "", err
	}
	return objectKey, nil
}

// OpenDraft streams a stored draft. The caller closes the reader.
func (m *MinioStore) OpenDraft(ctx context.Context, objectKey string) (io.ReadCloser, int64, error) {
	obj, err := m.client.GetObject(ctx, m.draftBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, 0, err
	}
	return obj, info.Size, nil
}

func (m *MinioStore) Ping(ctx context.Context) error {
	_, err := m.client.BucketExists(ctx, m.uploadBucket)
	return err
}

func (m *MinioStore) put(ctx context.Context, bucket, objectKey, contentType string, content []byte) error {
	_, err := m.client.PutObject(ctx, bucket, objectKey, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (m *MinioStore) get(ctx context.Context, bucket, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data := new(bytes.Buffer)
	if _, err := data.ReadFrom(obj); err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data.Bytes(), nil
}
