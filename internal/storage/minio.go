package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MediaStore wraps a MinIO client with bucket-scoped operations. Objects are
// addressed by an opaque public ID assigned at upload time; callers persist
// the ID and hand it back for URL() and Destroy() calls.
type MediaStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMediaStore creates a MinIO-backed store and ensures the bucket exists.
// baseURL is the externally visible prefix for object URLs; when empty, it
// falls back to the plain endpoint address.
func NewMediaStore(endpoint, accessKey, secretKey, bucket, baseURL string) (*MediaStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	if baseURL == "" {
		baseURL = "http://" + endpoint
	}

	return &MediaStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Upload stores an object under the given public ID.
func (m *MediaStore) Upload(ctx context.Context, publicID string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, publicID, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// URL returns the public URL for an object.
func (m *MediaStore) URL(publicID string) string {
	return fmt.Sprintf("%s/%s/%s", m.baseURL, m.bucket, publicID)
}

// Destroy removes an object from the bucket.
func (m *MediaStore) Destroy(ctx context.Context, publicID string) error {
	return m.client.RemoveObject(ctx, m.bucket, publicID, minio.RemoveObjectOptions{})
}
