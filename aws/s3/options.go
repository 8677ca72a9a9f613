// Package s3 provides functional options for configuring S3 client behavior.
// These options follow the functional options pattern for clean, composable configuration.
package s3

import (
	"log/slog"
	"time"

	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
	"github.com/input-output-hk/s3-artifact-handler/fs"
)

// WithHTTPClient sets the HTTP client requests are sent with.
// Default is an *http.Client with the configured timeout.
func WithHTTPClient(client s3types.HTTPClient) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.HTTPClient = client
	}
}

// WithTimeout sets the timeout of the default HTTP client.
// Default is no timeout (0). It has no effect together with WithHTTPClient.
func WithTimeout(timeout time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithSignatureTTL sets how long a presigned request stays valid.
// Default is one second. Values are rounded up to whole seconds.
func WithSignatureTTL(ttl time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if ttl > 0 {
			c.SignatureTTL = ttl
		}
	}
}

// WithPartSize sets the multipart part size.
// Default is 0, which uploads every file as a single part. Non-zero values
// must be at least 5MB.
func WithPartSize(partSize int64) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.PartSize = partSize
	}
}

// WithClock sets the time source used for signing.
func WithClock(now func() time.Time) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Clock = now
	}
}

// WithLogger sets the logger for request and transfer events.
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = logger
	}
}

// WithFilesystem sets a custom filesystem implementation for file operations.
// This allows using in-memory filesystems for testing or virtual filesystems.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem fs.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithContentType sets the content type of an uploaded object instead of
// detecting it from the file content.
func WithContentType(contentType string) s3types.TransferOption {
	return func(c *s3types.TransferOptionConfig) {
		c.ContentType = contentType
	}
}

// WithProgress sets a progress tracker for upload or download operations.
func WithProgress(tracker s3types.ProgressTracker) s3types.TransferOption {
	return func(c *s3types.TransferOptionConfig) {
		c.ProgressTracker = tracker
	}
}
