package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"

	"briefapi/internal/ingest"
	"briefapi/internal/model"
	"briefapi/internal/repository"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("media not found")
)

// MediaListResult is the service-level DTO for paginated media.
type MediaListResult struct {
	Items []model.Media `json:"data"`
	Total int           `json:"total"`
}

// MediaService defines the use cases for handling media assets.
type MediaService interface {
	// UploadMedia ingests one file and, for videos, derives a thumbnail.
	// Errors carry an ingest.Code (see ingest.CodeOf).
	UploadMedia(ctx context.Context, req ingest.UploadRequest) (*model.Media, error)

	// DeleteMedia removes the blob, then the record, and returns the record as it was.
	DeleteMedia(ctx context.Context, id string) (*model.Media, error)

	// List returns media using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*MediaListResult, error)

	// Get returns a single media record by its ID.
	Get(ctx context.Context, id string) (*model.Media, error)
}

// Pipeline is the subset of *ingest.Coordinator the service drives.
type Pipeline interface {
	Ingest(ctx context.Context, req ingest.UploadRequest, bucket string, opt ingest.Options) (*ingest.Result, error)
	Delete(ctx context.Context, storageKey, bucket string) error
	Discard(ctx context.Context, m *model.Media) error
}

// Thumbnailer derives a thumbnail for a stored video and returns its ID, or "".
type Thumbnailer interface {
	DeriveAndStore(ctx context.Context, parent *model.Media, file *ingest.ValidatedFile) string
}

type mediaService struct {
	pipeline Pipeline
	repo     repository.MediaRepository
	thumbs   Thumbnailer
	bucket   string
	opt      ingest.Options
	log      zerolog.Logger
}

// NewMediaService constructs a MediaService. thumbs may be nil to disable
// thumbnail derivation.
func NewMediaService(pipeline Pipeline, repo repository.MediaRepository, thumbs Thumbnailer, bucket string, opt ingest.Options, log zerolog.Logger) MediaService {
	return &mediaService{
		pipeline: pipeline,
		repo:     repo,
		thumbs:   thumbs,
		bucket:   bucket,
		opt:      opt,
		log:      log.With().Str("component", "media-service").Logger(),
	}
}

func (s *mediaService) UploadMedia(ctx context.Context, req ingest.UploadRequest) (*model.Media, error) {
	res, err := s.pipeline.Ingest(ctx, req, s.bucket, s.opt)
	if err != nil {
		return nil, err
	}

	m := res.Media
	// The upload lock is released by now, so the thumbnail's own Ingest can take it.
	if s.thumbs != nil && ingest.IsVideo(m.MimeType) {
		if id := s.thumbs.DeriveAndStore(ctx, m, res.File); id != "" {
			m.ThumbnailID = &id
		}
	}
	return m, nil
}

func (s *mediaService) DeleteMedia(ctx context.Context, id string) (*model.Media, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Blob first; a failure here keeps the row so the object stays reachable.
	if err := s.pipeline.Delete(ctx, m.StorageKey, m.Bucket); err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, m.ID); err != nil {
		return nil, &ingest.Error{Code: ingest.CodePersistence, Op: "delete media record", Err: err}
	}

	if m.ThumbnailID != nil {
		s.deleteThumbnail(ctx, m.ID, *m.ThumbnailID)
	}

	s.log.Info().Str("media_id", m.ID).Str("storage_key", m.StorageKey).Msg("media deleted")
	return m, nil
}

// deleteThumbnail removes a derived thumbnail after its parent is gone.
// Failures are logged only.
func (s *mediaService) deleteThumbnail(ctx context.Context, parentID, thumbID string) {
	thumb, err := s.repo.FindByID(ctx, thumbID)
	if errors.Is(err, sql.ErrNoRows) {
		return
	}
	if err == nil {
		err = s.pipeline.Discard(ctx, thumb)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("media_id", parentID).Str("thumbnail_id", thumbID).Msg("thumbnail cleanup failed")
	}
}

// List returns paginated media without exposing repository types.
func (s *mediaService) List(ctx context.Context, limit, offset int) (*MediaListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &MediaListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a media record by ID.
func (s *mediaService) Get(ctx context.Context, id string) (*model.Media, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}
