package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"briefapi/internal/model"
)

const (
	thumbnailMimeType = "image/jpeg"
	thumbnailSuffix   = "-thumbnail.jpg"
	thumbnailOffset   = time.Second
)

// IsVideo reports whether a resolved mime type gets a derived thumbnail.
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/")
}

// FrameExtractor decodes a single JPEG still from a video payload.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, video []byte, at time.Duration) ([]byte, error)
}

// FFmpegExtractor shells out to an ffmpeg binary.
type FFmpegExtractor struct {
	Path    string
	Timeout time.Duration
}

func (f FFmpegExtractor) ExtractFrame(ctx context.Context, video []byte, at time.Duration) ([]byte, error) {
	bin := strings.TrimSpace(f.Path)
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary %q not found in PATH: %w", bin, err)
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	// Containers like mp4/mov may keep their index at the end, so ffmpeg needs
	// a seekable input rather than a pipe.
	tmp, err := os.CreateTemp("", "briefapi-video-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(video); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64),
		"-i", tmp.Name(),
		"-frames:v", "1",
		"-f", "image2", "-c:v", "mjpeg",
		"pipe:1",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg produced no frame")
	}
	return stdout.Bytes(), nil
}

// Ingester is the part of the Coordinator the thumbnail deriver re-enters.
type Ingester interface {
	Ingest(ctx context.Context, req UploadRequest, bucket string, opt Options) (*Result, error)
	LinkThumbnail(ctx context.Context, parentID, thumbnailID string) error
	Discard(ctx context.Context, m *model.Media) error
}

// ThumbnailDeriver produces and stores a still image for video uploads.
// Failures never propagate: a missing thumbnail is not an upload error.
type ThumbnailDeriver struct {
	ingester  Ingester
	extractor FrameExtractor
	opt       Options
	metrics   *Metrics
	log       zerolog.Logger
}

// NewThumbnailDeriver builds a deriver that stores thumbnails through ing
// using opt for validation.
func NewThumbnailDeriver(ing Ingester, extractor FrameExtractor, opt Options, metrics *Metrics, log zerolog.Logger) *ThumbnailDeriver {
	return &ThumbnailDeriver{
		ingester:  ing,
		extractor: extractor,
		opt:       opt,
		metrics:   metrics,
		log:       log.With().Str("component", "thumbnail-deriver").Logger(),
	}
}

// DeriveAndStore extracts a frame from file, ingests it next to parent and
// links it. It returns the thumbnail's media ID, or "" when none was stored.
func (d *ThumbnailDeriver) DeriveAndStore(ctx context.Context, parent *model.Media, file *ValidatedFile) (id string) {
	if parent == nil || file == nil || !IsVideo(file.MimeType) {
		return ""
	}
	logger := d.log.With().Str("parent_id", parent.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("thumbnail derivation panicked")
			d.metrics.recordThumbnail("failed")
			id = ""
		}
	}()

	frame, err := d.extractor.ExtractFrame(ctx, file.Buffer, thumbnailOffset)
	if err != nil {
		logger.Warn().Err(err).Msg("thumbnail frame extraction failed")
		d.metrics.recordThumbnail("failed")
		return ""
	}

	res, err := d.ingester.Ingest(ctx, UploadRequest{
		Body:        bytes.NewReader(frame),
		Filename:    thumbnailName(file.Filename, d.opt.withDefaults().MaxFilenameLength),
		ContentType: thumbnailMimeType,
		Size:        int64(len(frame)),
		OwnerID:     parent.OwnerID,
	}, parent.Bucket, d.opt)
	if err != nil {
		logger.Warn().Err(err).Msg("thumbnail ingestion failed")
		d.metrics.recordThumbnail("failed")
		return ""
	}

	if err := d.ingester.LinkThumbnail(ctx, parent.ID, res.Media.ID); err != nil {
		logger.Warn().Err(err).Str("thumbnail_id", res.Media.ID).Msg("thumbnail link failed")
		if derr := d.ingester.Discard(ctx, res.Media); derr != nil {
			logger.Error().Err(derr).Str("thumbnail_id", res.Media.ID).Msg("discarding unlinked thumbnail failed")
		}
		d.metrics.recordThumbnail("failed")
		return ""
	}

	d.metrics.recordThumbnail("success")
	logger.Info().Str("thumbnail_id", res.Media.ID).Msg("thumbnail stored")
	return res.Media.ID
}

// thumbnailName derives "<base>-thumbnail.jpg", trimming base so the result
// fits within limit characters.
func thumbnailName(original string, limit int) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "video"
	}
	room := limit - utf8.RuneCountInString(thumbnailSuffix)
	if room < 1 {
		room = 1
	}
	if utf8.RuneCountInString(base) > room {
		base = string([]rune(base)[:room])
	}
	return base + thumbnailSuffix
}
