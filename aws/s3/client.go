package s3

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"

	s3errors "github.com/input-output-hk/s3-artifact-handler/aws/s3/errors"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/presign"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/s3api"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/transfer/multipart"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
	"github.com/input-output-hk/s3-artifact-handler/fs"
	"github.com/input-output-hk/s3-artifact-handler/fs/billy"
)

// Client is a session with one bucket. It is read-only after construction.
type Client struct {
	// api presigns and sends requests
	api s3api.API

	// bucket is the target bucket
	bucket s3types.Bucket

	// partSize is the multipart part size, zero for a single part
	partSize int64

	// logger receives request and transfer events
	logger *slog.Logger

	// fs is the filesystem abstraction for file operations
	fs fs.Filesystem
}

// New creates a client for bucket that signs with creds.
//
// Example:
//
//	client, err := s3.New(bucket, creds.Provider(),
//	    s3.WithSignatureTTL(5*time.Second),
//	    s3.WithPartSize(16<<20),
//	)
func New(bucket s3types.Bucket, creds aws.CredentialsProvider, opts ...s3types.Option) (*Client, error) {
	if creds == nil {
		return nil, s3errors.NewBucketError("newClient", bucket.Name(), s3errors.ErrInvalidInput).
			WithMessage("credentials provider cannot be nil")
	}

	cfg := newConfig(opts)

	if cfg.PartSize < 0 || (cfg.PartSize > 0 && cfg.PartSize < multipart.MinPartSize) {
		return nil, s3errors.NewBucketError("newClient", bucket.Name(), s3errors.ErrInvalidInput).
			WithMessage("part size must be zero or at least 5 MiB")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	p := presign.New(creds, bucket.SigningRegion(), cfg.SignatureTTL, cfg.Clock)
	return newClient(s3api.NewPresigned(httpClient, p, cfg.Logger), bucket, cfg), nil
}

func newConfig(opts []s3types.Option) *s3types.ClientConfig {
	cfg := &s3types.ClientConfig{
		SignatureTTL: presign.DefaultTTL,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = billy.NewBaseOSFS()
	}
	return cfg
}

func newClient(api s3api.API, bucket s3types.Bucket, cfg *s3types.ClientConfig) *Client {
	return &Client{
		api:      api,
		bucket:   bucket,
		partSize: cfg.PartSize,
		logger:   cfg.Logger.With("bucket", bucket.Name()),
		fs:       cfg.Filesystem,
	}
}

// Bucket returns the bucket the client operates on.
func (c *Client) Bucket() s3types.Bucket {
	return c.bucket
}
