// Package s3 provides the main S3 client and core operations.
package s3

import (
	"context"
	"errors"

	s3errors "github.com/input-output-hk/s3-artifact-handler/aws/s3/errors"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/operations/bucket"
	deleteop "github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/operations/delete"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/operations/download"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/operations/head"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/transfer/multipart"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/validation"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
)

// EnsureBucket verifies that the bucket exists and creates it if it does
// not. Calling it on a bucket the caller already owns succeeds.
//
// Errors:
//   - ErrBucketCreate: If the bucket was missing and could not be created
//   - Transport errors wrapped in Error type
func (c *Client) EnsureBucket(ctx context.Context) error {
	return bucket.New(c.api, c.bucket, c.logger).Ensure(ctx)
}

// Put uploads the file at localPath to key with the multipart protocol.
// The file is sent as one part unless the client was configured with a part
// size smaller than the file.
//
// Returns:
//   - *UploadResult: Contains the upload id, parts, ETag and duration
//   - error: Returns an error if any step of the protocol fails
//
// Errors:
//   - ErrInvalidInput: If key is invalid
//   - ErrMissingUploadID, ErrMissingETag: If the store omits a required field
//   - ErrAccessDenied: If the signature is rejected or has expired
//
// A failed upload is not aborted; the store discards it on its own schedule.
func (c *Client) Put(
	ctx context.Context,
	key, localPath string,
	opts ...s3types.TransferOption,
) (*s3types.UploadResult, error) {
	if err := c.validateKey("put", key); err != nil {
		return nil, err
	}

	cfg := applyTransferOptions(opts)
	uploader := multipart.NewUploader(c.api, c.fs, c.bucket, c.partSize, c.logger)
	result, err := uploader.UploadFile(ctx, key, localPath, cfg)
	if err != nil {
		return nil, err
	}

	c.logger.Info("object uploaded",
		"key", key, "size", result.Size, "parts", len(result.Parts), "etag", result.ETag)
	return result, nil
}

// Get downloads key into localPath. The file only appears under localPath
// once the whole object has been received.
//
// Errors:
//   - ErrInvalidInput: If key is invalid
//   - ErrObjectNotFound: If the object does not exist
func (c *Client) Get(
	ctx context.Context,
	key, localPath string,
	opts ...s3types.TransferOption,
) (*s3types.DownloadResult, error) {
	if err := c.validateKey("get", key); err != nil {
		return nil, err
	}

	cfg := applyTransferOptions(opts)
	result, err := download.New(c.api, c.fs, c.bucket, c.logger).DownloadFile(ctx, key, localPath, cfg)
	if err != nil {
		return nil, err
	}

	c.logger.Info("object downloaded", "key", key, "path", localPath, "size", result.Size)
	return result, nil
}

// Delete removes key. Deleting a missing object succeeds.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.validateKey("delete", key); err != nil {
		return err
	}
	return deleteop.New(c.api, c.bucket, c.logger).Delete(ctx, key)
}

// Head returns the metadata of key.
func (c *Client) Head(ctx context.Context, key string) (*s3types.ObjectInfo, error) {
	if err := c.validateKey("head", key); err != nil {
		return nil, err
	}
	return head.Stat(ctx, c.api, c.bucket, key)
}

// Exists reports whether key exists.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.Head(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, s3errors.ErrObjectNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (c *Client) validateKey(op, key string) error {
	if err := validation.ValidateObjectKey(key); err != nil {
		return s3errors.NewObjectError(op, c.bucket.Name(), key, s3errors.ErrInvalidInput).WithMessage(err.Error())
	}
	return nil
}

func applyTransferOptions(opts []s3types.TransferOption) *s3types.TransferOptionConfig {
	cfg := &s3types.TransferOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
