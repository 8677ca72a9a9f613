package delete

import (
	"context"
	"log/slog"
	"net/http"

	s3errors "github.com/input-output-hk/s3-artifact-handler/aws/s3/errors"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/s3api"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/wire"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
)

// Deleter handles S3 delete operations.
type Deleter struct {
	api    s3api.API
	bucket s3types.Bucket
	logger *slog.Logger
}

// New creates a new Deleter instance.
func New(api s3api.API, bucket s3types.Bucket, logger *slog.Logger) *Deleter {
	return &Deleter{api: api, bucket: bucket, logger: logger}
}

// Delete removes key from the bucket.
func (d *Deleter) Delete(ctx context.Context, key string) error {
	resp, err := d.api.Do(ctx, &s3api.Request{Method: http.MethodDelete, URL: d.bucket.ObjectURL(key)})
	if err != nil {
		return s3errors.NewObjectError("delete", d.bucket.Name(), key, err)
	}
	defer s3api.Discard(resp)

	switch {
	case wire.Success(resp.StatusCode):
		d.logger.Debug("object deleted", "bucket", d.bucket.Name(), "key", key)
		return nil
	case resp.StatusCode == http.StatusNotFound:
		d.logger.Debug("object already absent", "bucket", d.bucket.Name(), "key", key)
		return nil
	default:
		return s3errors.FromResponse("delete", d.bucket.Name(), key, resp.StatusCode, wire.ReadError(resp))
	}
}
