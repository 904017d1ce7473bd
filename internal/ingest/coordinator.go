package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"briefapi/internal/lock"
	"briefapi/internal/model"
	"briefapi/internal/repository"
	"briefapi/internal/storage"
)

const compensationTimeout = 30 * time.Second

// Result is a committed ingestion: the stored row and the buffered file it came from.
type Result struct {
	Media *model.Media
	File  *ValidatedFile
}

// Coordinator owns the "blob written -> metadata committed" transition.
// Every Ingest call in the process runs under the same named lock, so the
// validate/store/persist sequences of two uploads never interleave.
type Coordinator struct {
	store   storage.ObjectStore
	repo    repository.MediaRepository
	locker  lock.Locker
	log     zerolog.Logger
	retry   RetryPolicy
	metrics *Metrics
	newKey  func(filename string) string
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithRetryPolicy overrides the storage put retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Coordinator) { c.retry = p }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator wires the pipeline to its stores and lock.
func NewCoordinator(store storage.ObjectStore, repo repository.MediaRepository, locker lock.Locker, log zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		repo:   repo,
		locker: locker,
		log:    log.With().Str("component", "upload-coordinator").Logger(),
		newKey: storageKey,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// storageKey is a random UUID plus the lowercased original extension.
func storageKey(filename string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

// Ingest validates req, writes it to bucket and records its metadata.
// An empty bucket means DefaultBucket. Failures are *Error values with
// CodeValidation, CodeStorage or CodePersistence.
func (c *Coordinator) Ingest(ctx context.Context, req UploadRequest, bucket string, opt Options) (res *Result, err error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	opt = opt.withDefaults()

	waitStart := time.Now()
	release, err := c.locker.Acquire(ctx, LockName)
	if err != nil {
		return nil, storageError("acquire upload lock", err)
	}
	defer release()
	c.metrics.observeLockWait(time.Since(waitStart))

	start := time.Now()
	defer func() {
		c.metrics.observeDuration(time.Since(start))
		size := 0
		if res != nil {
			size = len(res.File.Buffer)
		}
		c.metrics.recordUpload(err, size)
	}()

	file, err := Validate(req.Body, req.Filename, req.ContentType, req.Size, opt)
	if err != nil {
		c.log.Info().Err(err).Str("filename", req.Filename).Msg("upload rejected")
		return nil, err
	}

	if err := c.ensureBucket(ctx, bucket, opt); err != nil {
		return nil, err
	}

	key := c.newKey(file.Filename)
	if err := c.putWithRetry(ctx, bucket, key, file); err != nil {
		c.log.Error().Err(err).Str("bucket", bucket).Str("storage_key", key).Msg("storage put failed")
		return nil, err
	}

	stored, err := c.repo.Create(ctx, &model.Media{
		URL:          c.store.PublicURL(bucket, key),
		Bucket:       bucket,
		StorageKey:   key,
		MimeType:     file.MimeType,
		OriginalName: file.Filename,
		SizeBytes:    int64(len(file.Buffer)),
		OwnerID:      req.OwnerID,
	})
	if err != nil {
		c.compensate(ctx, bucket, key, err)
		return nil, persistenceError("insert media record", err)
	}

	c.log.Info().
		Str("media_id", stored.ID).
		Str("bucket", bucket).
		Str("storage_key", key).
		Str("mime_type", file.MimeType).
		Int64("size_bytes", stored.SizeBytes).
		Msg("media ingested")

	return &Result{Media: stored, File: file}, nil
}

// ensureBucket creates bucket with a public-read policy when it is missing.
func (c *Coordinator) ensureBucket(ctx context.Context, bucket string, opt Options) error {
	exists, err := c.store.BucketExists(ctx, bucket)
	if err != nil {
		return storageError("check bucket", err)
	}
	if exists {
		return nil
	}
	if err := c.store.CreateBucket(ctx, bucket, storage.BucketOptions{
		PublicRead:   true,
		AllowedTypes: opt.AllowedMimeTypes,
		MaxSizeBytes: opt.MaxSizeBytes(),
	}); err != nil {
		return storageError("create bucket", fmt.Errorf("%s: %w", bucket, err))
	}
	c.log.Info().Str("bucket", bucket).Msg("bucket created")
	return nil
}

// compensate removes an object whose metadata insert failed. A failed delete
// is logged only; the caller still reports the insert error.
func (c *Coordinator) compensate(ctx context.Context, bucket, key string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := c.store.Delete(ctx, bucket, key); err != nil {
		c.metrics.recordCompensation(false)
		c.log.Error().
			Err(err).
			AnErr("cause", cause).
			Str("bucket", bucket).
			Str("storage_key", key).
			Msg("cleanup after failed metadata insert failed; object is orphaned")
		return
	}
	c.metrics.recordCompensation(true)
	c.log.Warn().
		AnErr("cause", cause).
		Str("bucket", bucket).
		Str("storage_key", key).
		Msg("metadata insert failed; stored object removed")
}

// Delete removes a stored object. It does not touch the metadata row.
func (c *Coordinator) Delete(ctx context.Context, storageKey, bucket string) error {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if err := c.store.Delete(ctx, bucket, storageKey); err != nil {
		return storageError("delete object", err)
	}
	return nil
}

// LinkThumbnail records thumbnailID as the derived thumbnail of parentID.
func (c *Coordinator) LinkThumbnail(ctx context.Context, parentID, thumbnailID string) error {
	if err := c.repo.SetThumbnail(ctx, parentID, thumbnailID); err != nil {
		return persistenceError("link thumbnail", err)
	}
	return nil
}

// Discard removes an ingested object that turned out to be unwanted:
// blob first, then row, the same order as a user-initiated delete.
func (c *Coordinator) Discard(ctx context.Context, m *model.Media) error {
	if err := c.Delete(ctx, m.StorageKey, m.Bucket); err != nil {
		return err
	}
	if err := c.repo.Delete(ctx, m.ID); err != nil {
		return persistenceError("delete media record", err)
	}
	return nil
}

var _ Ingester = (*Coordinator)(nil)
