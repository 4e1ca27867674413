// Package storage keeps medical record attachments in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOStore struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewMinIOStore(cfg config.StorageConfig) (*MinIOStore, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("object storage is not configured")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MinIO client: %w", err)
	}

	return &MinIOStore{client: client, bucket: cfg.Bucket, ttl: cfg.PresignTTL}, nil
}

// EnsureBucket creates the bucket on first start.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put stores r under folder with a collision-free name and returns the object key.
func (s *MinIOStore) Put(ctx context.Context, folder, fileName, contentType string, r io.Reader, size int64) (string, error) {
	key := ObjectKey(folder, fileName, uuid.NewString()[:8])
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return key, nil
}

// PresignGet returns a time-limited download URL that suggests fileName to the browser.
func (s *MinIOStore) PresignGet(ctx context.Context, key, fileName string) (string, time.Time, error) {
	params := make(url.Values)
	if fileName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}
	expiresAt := time.Now().Add(s.ttl)
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, params)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presigning %s: %w", key, err)
	}
	return u.String(), expiresAt, nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// ObjectKey builds folder/base_suffix.ext, keeping only safe characters of
// the original base name.
func ObjectKey(folder, fileName, suffix string) string {
	ext := strings.ToLower(path.Ext(fileName))
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(fileName, "\\", "/")), path.Ext(fileName))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	clean := b.String()
	if clean == "" {
		clean = "file"
	}
	return path.Join(folder, fmt.Sprintf("%s_%s%s", clean, suffix, ext))
}
