package bucket

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	s3errors "github.com/input-output-hk/s3-artifact-handler/aws/s3/errors"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/s3api"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/wire"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
)

// codeAlreadyOwned is returned when creating a bucket the caller already owns.
const codeAlreadyOwned = "BucketAlreadyOwnedByYou"

// Ensurer handles bucket existence checks.
type Ensurer struct {
	api    s3api.API
	bucket s3types.Bucket
	logger *slog.Logger
}

// New creates a new Ensurer instance.
func New(api s3api.API, bucket s3types.Bucket, logger *slog.Logger) *Ensurer {
	return &Ensurer{api: api, bucket: bucket, logger: logger}
}

// Ensure checks the bucket with HEAD and creates it when the check fails.
// Creating a bucket that is already owned by the caller counts as success.
func (e *Ensurer) Ensure(ctx context.Context) error {
	resp, err := e.api.Do(ctx, &s3api.Request{Method: http.MethodHead, URL: e.bucket.BucketURL()})
	if err != nil {
		return s3errors.NewBucketError("headBucket", e.bucket.Name(), err)
	}
	s3api.Discard(resp)

	if wire.Success(resp.StatusCode) {
		e.logger.Debug("bucket exists", "bucket", e.bucket.Name())
		return nil
	}

	e.logger.Info("creating bucket", "bucket", e.bucket.Name(), "status", resp.StatusCode)
	return e.create(ctx)
}

func (e *Ensurer) create(ctx context.Context) error {
	req := &s3api.Request{Method: http.MethodPut, URL: e.bucket.BucketURL()}

	if region := e.bucket.Region(); region != "" && region != s3types.DefaultRegion {
		payload, err := wire.Encode(wire.CreateBucketConfiguration{
			Xmlns:              wire.Namespace,
			LocationConstraint: region,
		})
		if err != nil {
			return s3errors.NewBucketError("createBucket", e.bucket.Name(), err)
		}
		req.Body = bytes.NewReader(payload)
		req.ContentLength = int64(len(payload))
		req.Header = http.Header{"Content-Type": {"application/xml"}}
	}

	resp, err := e.api.Do(ctx, req)
	if err != nil {
		return s3errors.NewBucketError("createBucket", e.bucket.Name(),
			fmt.Errorf("%w: %w", s3errors.ErrBucketCreate, err))
	}
	defer s3api.Discard(resp)

	if wire.Success(resp.StatusCode) {
		e.logger.Info("bucket created", "bucket", e.bucket.Name())
		return nil
	}

	apiErr := wire.ReadError(resp)
	if apiErr.Code == codeAlreadyOwned {
		e.logger.Debug("bucket already owned", "bucket", e.bucket.Name())
		return nil
	}
	return s3errors.NewBucketError("createBucket", e.bucket.Name(),
		fmt.Errorf("%w: %w", s3errors.ErrBucketCreate, apiErr)).WithStatus(resp.StatusCode)
}
