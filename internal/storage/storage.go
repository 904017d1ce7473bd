package storage

import (
	"context"
)

// Package storage contains object storage abstractions for S3-compatible backends.

// BucketOptions describe the policy applied when a bucket is provisioned.
type BucketOptions struct {
	PublicRead   bool
	AllowedTypes []string
	MaxSizeBytes int64
}

// PutObjectOptions define optional parameters for uploading objects.
type PutObjectOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a written object.
type ObjectInfo struct {
	Bucket      string
	Key         string
	Size        int64
	ETag        string
	ContentType string
}

// ObjectStore is durable key-addressed blob storage.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// BucketExists reports whether the named bucket is present.
	BucketExists(ctx context.Context, name string) (bool, error)
	// CreateBucket provisions a bucket with the given policy.
	CreateBucket(ctx context.Context, name string, opt BucketOptions) error
	// Put writes data under key. The whole payload is passed so callers can retry.
	Put(ctx context.Context, bucket, key string, data []byte, opt PutObjectOptions) (ObjectInfo, error)
	// PublicURL returns the unauthenticated URL of an object in a public-read bucket.
	PublicURL(bucket, key string) string
	// Delete removes the given keys from bucket.
	Delete(ctx context.Context, bucket string, keys ...string) error
}
