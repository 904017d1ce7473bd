package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"briefapi/internal/config"
)

// minioStorage implements ObjectStore using an S3-compatible backend (MinIO, AWS S3, etc.).
// It is safe for concurrent use by multiple goroutines.
type minioStorage struct {
	client    *minio.Client
	publicURL *url.URL
}

// NewMinIO creates a new S3-compatible storage client backed by MinIO.
// Buckets are not created here; the ingestion pipeline provisions them on demand.
func NewMinIO(cfg config.MinIOConfig) (ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}

	transport, err := minio.DefaultTransport(cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("build minio transport: %w", err)
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: otelhttp.NewTransport(transport),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	public := cli.EndpointURL()
	if cfg.PublicURL != "" {
		u, err := url.Parse(cfg.PublicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid minio public url %q", cfg.PublicURL)
		}
		public = u
	}

	return &minioStorage{client: cli, publicURL: public}, nil
}

func (m *minioStorage) BucketExists(ctx context.Context, name string) (bool, error) {
	return m.client.BucketExists(ctx, name)
}

// CreateBucket makes the bucket and applies an anonymous read policy when requested.
// S3 has no bucket-level type or size limits; the ingestion validator enforces those.
func (m *minioStorage) CreateBucket(ctx context.Context, name string, opt BucketOptions) error {
	if err := m.client.MakeBucket(ctx, name, minio.MakeBucketOptions{}); err != nil {
		// Another instance may have won the race.
		if resp := minio.ToErrorResponse(err); resp.Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return err
	}
	if !opt.PublicRead {
		return nil
	}
	policy, err := publicReadPolicy(name)
	if err != nil {
		return err
	}
	if err := m.client.SetBucketPolicy(ctx, name, policy); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

// Put uploads an object from an in-memory payload.
func (m *minioStorage) Put(ctx context.Context, bucket, key string, data []byte, opt PutObjectOptions) (ObjectInfo, error) {
	info, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  opt.ContentType,
		UserMetadata: opt.Metadata,
	})
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        info.Size,
		ETag:        info.ETag,
		ContentType: opt.ContentType,
	}, nil
}

func (m *minioStorage) PublicURL(bucket, key string) string {
	return m.publicURL.JoinPath(bucket, key).String()
}

// Delete removes keys in one multi-object request and joins per-key failures.
func (m *minioStorage) Delete(ctx context.Context, bucket string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var errs []error
	for rmErr := range m.client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("remove %s: %w", rmErr.ObjectName, rmErr.Err))
	}
	return errors.Join(errs...)
}

func publicReadPolicy(bucket string) (string, error) {
	doc := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{{
			"Effect":    "Allow",
			"Principal": map[string]any{"AWS": []string{"*"}},
			"Action":    []string{"s3:GetObject"},
			"Resource":  []string{"arn:aws:s3:::" + bucket + "/*"},
		}},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
