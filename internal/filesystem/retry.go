package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
)

// RetryConfig bounds the stale-handle retry loop.
type RetryConfig struct {
	// MaxRetries is how many times an operation is re-attempted after
	// the initial try.
	MaxRetries int
	// InitialBackoff is the first sleep; it doubles per attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the doubling.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the budget the file storage backend runs
// with. Three attempts inside ~350ms rides out the common case, a
// rename on another client invalidating a cached NFS handle.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isStaleHandle reports whether err is an NFS stale file handle
// (ESTALE). Nothing else is worth retrying: permission and not-exist
// errors are deterministic, and transient network errors surface as
// timeouts the caller's context already bounds.
func isStaleHandle(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.ESTALE
}

// withRetry drives one operation through the retry budget. Non-stale
// errors return unchanged on the first occurrence, so os.IsNotExist
// and friends keep working at the call site.
func withRetry(operation, path string, config RetryConfig, fn func() error) error {
	backoff := config.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("Filesystem %s recovered from stale handle on retry %d: %s", operation, attempt, path)
				metrics.FilesystemRetrySuccess.WithLabelValues(operation).Inc()
			}
			return nil
		}
		if !isStaleHandle(err) {
			return err
		}

		lastErr = err
		metrics.FilesystemStaleErrors.WithLabelValues(operation).Inc()

		if attempt < config.MaxRetries {
			metrics.FilesystemRetries.WithLabelValues(operation).Inc()
			logging.Debug("Filesystem %s hit stale handle on %s, retrying in %v (attempt %d/%d)",
				operation, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("Filesystem %s failed after %d stale-handle retries: %s: %v",
		operation, config.MaxRetries, path, lastErr)
	metrics.FilesystemRetryFailures.WithLabelValues(operation).Inc()
	return lastErr
}

// Stat is os.Stat with stale-handle retries.
func Stat(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", path, config, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	return info, err
}

// Open is os.Open with stale-handle retries.
func Open(path string, config RetryConfig) (*os.File, error) {
	var file *os.File
	err := withRetry("open", path, config, func() error {
		var err error
		file, err = os.Open(path)
		return err
	})
	return file, err
}

// ReadFile is os.ReadFile with stale-handle retries. A handle that
// goes stale mid-read also restarts, so callers never see a short
// result.
func ReadFile(path string, config RetryConfig) ([]byte, error) {
	var data []byte
	err := withRetry("read", path, config, func() error {
		var err error
		data, err = os.ReadFile(path)
		return err
	})
	return data, err
}
