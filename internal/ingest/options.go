package ingest

import (
	"io"
	"time"

	"briefapi/internal/config"
)

const (
	DefaultBucket            = "media"
	DefaultMaxSizeInMB       = 50
	DefaultMaxFilenameLength = 255

	// LockName serializes every upload in the process.
	LockName = "upload"
)

// DefaultAllowedMimeTypes is used when Options.AllowedMimeTypes is empty.
var DefaultAllowedMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"video/mp4",
	"video/quicktime",
}

// Options are the recognized validation settings. Zero fields take defaults.
type Options struct {
	MaxSizeInMB       int
	AllowedMimeTypes  []string
	MaxFilenameLength int
}

// OptionsFromConfig maps the media config onto validation options.
func OptionsFromConfig(c config.MediaConfig) Options {
	return Options{
		MaxSizeInMB:       c.MaxSizeInMB,
		AllowedMimeTypes:  c.AllowedMimeTypes,
		MaxFilenameLength: c.MaxFilenameLength,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxSizeInMB <= 0 {
		o.MaxSizeInMB = DefaultMaxSizeInMB
	}
	if len(o.AllowedMimeTypes) == 0 {
		o.AllowedMimeTypes = DefaultAllowedMimeTypes
	}
	if o.MaxFilenameLength <= 0 {
		o.MaxFilenameLength = DefaultMaxFilenameLength
	}
	return o
}

// MaxSizeBytes is MaxSizeInMB in bytes (1 MB = 1024*1024).
func (o Options) MaxSizeBytes() int64 {
	return int64(o.withDefaults().MaxSizeInMB) * 1024 * 1024
}

// UploadRequest is one raw upload. Size is -1 when unknown.
type UploadRequest struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Size        int64
	OwnerID     string
}

// ValidatedFile is a fully buffered upload that passed validation.
type ValidatedFile struct {
	Buffer   []byte
	Filename string
	MimeType string
}

// RetryPolicy controls Put retries. Zero fields take defaults
// (3 attempts, 1s initial interval, 5s cap).
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// RetryPolicyFromConfig maps the media config onto a retry policy.
func RetryPolicyFromConfig(c config.MediaConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     c.RetryAttempts,
		InitialInterval: c.RetryInitial,
		MaxInterval:     c.RetryMax,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = time.Second
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 5 * time.Second
	}
	return p
}
