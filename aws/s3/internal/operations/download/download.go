package download

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	s3errors "github.com/input-output-hk/s3-artifact-handler/aws/s3/errors"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/operations/head"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/s3api"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/wire"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
	"github.com/input-output-hk/s3-artifact-handler/fs"
)

// PartSuffix is appended to the destination path while a download is in
// progress.
const PartSuffix = ".part"

// cacheControl asks intermediaries not to serve or keep a cached copy.
const cacheControl = "no-cache, no-store"

// Downloader handles S3 download operations with progress tracking support.
type Downloader struct {
	api    s3api.API
	fs     fs.Filesystem
	bucket s3types.Bucket
	logger *slog.Logger
}

// New creates a new Downloader instance.
func New(api s3api.API, filesystem fs.Filesystem, bucket s3types.Bucket, logger *slog.Logger) *Downloader {
	return &Downloader{api: api, fs: filesystem, bucket: bucket, logger: logger}
}

// DownloadFile downloads key into localPath, replacing any existing file.
func (d *Downloader) DownloadFile(
	ctx context.Context,
	key, localPath string,
	cfg *s3types.TransferOptionConfig,
) (result *s3types.DownloadResult, err error) {
	start := time.Now()
	tracker := cfg.ProgressTracker
	defer func() {
		if tracker == nil {
			return
		}
		if err != nil {
			tracker.Error(err)
			return
		}
		tracker.Complete()
	}()

	target := d.bucket.ObjectURL(key)
	target.RawQuery = url.Values{"response-cache-control": {cacheControl}}.Encode()

	resp, err := d.api.Do(ctx, &s3api.Request{Method: http.MethodGet, URL: target})
	if err != nil {
		return nil, s3errors.NewObjectError("get", d.bucket.Name(), key, err)
	}
	defer s3api.Discard(resp)

	if !wire.Success(resp.StatusCode) {
		return nil, s3errors.FromResponse("get", d.bucket.Name(), key, resp.StatusCode, wire.ReadError(resp))
	}

	info := head.InfoFromHeader(key, resp.Header, resp.ContentLength)

	var body io.Reader = resp.Body
	if tracker != nil {
		body = &progressReader{
			reader:          resp.Body,
			progressTracker: tracker,
			total:           info.Size,
		}
	}

	written, err := d.writePart(key, localPath, body)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("object downloaded",
		"bucket", d.bucket.Name(), "key", key, "path", localPath, "size", written, "etag", info.ETag)

	return &s3types.DownloadResult{
		Key:      key,
		Size:     written,
		ETag:     info.ETag,
		Duration: time.Since(start),
	}, nil
}

// writePart copies body into localPath+PartSuffix and renames it onto
// localPath. The part file is removed on any failure.
func (d *Downloader) writePart(key, localPath string, body io.Reader) (written int64, err error) {
	partPath := localPath + PartSuffix

	file, err := d.fs.Create(partPath)
	if err != nil {
		return 0, s3errors.NewObjectError("get", d.bucket.Name(), key,
			apperrors.WrapPath(err, apperrors.CodeIO, "create", partPath))
	}
	defer func() {
		if err != nil {
			_ = file.Close()
			if rmErr := d.fs.Remove(partPath); rmErr != nil {
				d.logger.Warn("failed to remove partial download", "path", partPath, "error", rmErr)
			}
		}
	}()

	ew := &errWriter{w: file}
	written, err = io.Copy(ew, body)
	if err != nil {
		if ew.err != nil {
			return 0, s3errors.NewObjectError("get", d.bucket.Name(), key,
				apperrors.WrapPath(ew.err, apperrors.CodeIO, "write", partPath))
		}
		return 0, s3errors.NewObjectError("get", d.bucket.Name(), key, err)
	}

	if err = file.Close(); err != nil {
		return 0, s3errors.NewObjectError("get", d.bucket.Name(), key,
			apperrors.WrapPath(err, apperrors.CodeIO, "close", partPath))
	}
	if err = d.fs.Rename(partPath, localPath); err != nil {
		return 0, s3errors.NewObjectError("get", d.bucket.Name(), key,
			apperrors.WrapPath(err, apperrors.CodeIO, "rename", localPath))
	}
	return written, nil
}

// errWriter remembers write failures so they can be told apart from
// failures reading the response body.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	//nolint:wrapcheck // io.Writer interface contract
	return n, err
}

// progressReader wraps an io.Reader to track progress
type progressReader struct {
	reader          io.Reader
	progressTracker s3types.ProgressTracker
	total           int64
	bytesRead       int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.bytesRead += int64(n)
		pr.progressTracker.Update(pr.bytesRead, pr.total)
	}
	//nolint:wrapcheck // io.Reader interface contract - error comes from underlying reader
	return n, err
}
