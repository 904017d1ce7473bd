package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"briefapi/internal/storage"
)

// transientMarkers are substrings of error messages that indicate a
// network-level failure worth retrying.
var transientMarkers = []string{
	"network",
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"broken pipe",
	"unexpected eof",
	"econnreset",
	"etimedout",
}

// isTransient reports whether err is a network or timeout failure.
// Caller cancellation is never transient.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	p = p.withDefaults()
	if p.MaxAttempts == 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

// putWithRetry writes the file, retrying transient failures per the policy.
// Permanent failures stop after the first attempt.
func (c *Coordinator) putWithRetry(ctx context.Context, bucket, key string, file *ValidatedFile) error {
	policy := c.retry.withDefaults()
	attempt := 0

	op := func() error {
		attempt++
		_, err := c.store.Put(ctx, bucket, key, file.Buffer, storage.PutObjectOptions{
			ContentType: file.MimeType,
			Metadata: map[string]string{
				"original-filename": url.QueryEscape(file.Filename),
			},
		})
		c.metrics.recordPut(err)
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", policy.MaxAttempts).
			Dur("retry_in", wait).
			Str("bucket", bucket).
			Str("storage_key", key).
			Msg("storage put failed, retrying")
	}

	if err := backoff.RetryNotify(op, policy.backOff(ctx), notify); err != nil {
		return storageError("put object", fmt.Errorf("%d attempt(s): %w", attempt, err))
	}
	return nil
}
