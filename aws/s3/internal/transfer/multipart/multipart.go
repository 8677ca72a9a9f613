package multipart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	s3errors "github.com/input-output-hk/s3-artifact-handler/aws/s3/errors"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/s3api"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/wire"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
	"github.com/input-output-hk/s3-artifact-handler/fs"
)

const (
	// MinPartSize is the smallest part S3 accepts for all but the last part.
	MinPartSize = 5 * 1024 * 1024

	// MaxParts is the largest part number S3 accepts.
	MaxParts = 10000

	defaultContentType = "application/octet-stream"
)

// State is the position of an upload in the multipart protocol.
type State int

// Upload states in protocol order.
const (
	StateIdle State = iota
	StateInitiated
	StatePartUploaded
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitiated:
		return "initiated"
	case StatePartUploaded:
		return "part-uploaded"
	case StateCompleted:
		return "completed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Uploader handles multipart upload operations
type Uploader struct {
	api      s3api.API
	fs       fs.Filesystem
	bucket   s3types.Bucket
	partSize int64
	logger   *slog.Logger
}

// NewUploader creates a new multipart uploader. A partSize of zero uploads
// every file as a single part.
func NewUploader(api s3api.API, filesystem fs.Filesystem, bucket s3types.Bucket, partSize int64, logger *slog.Logger) *Uploader {
	return &Uploader{
		api:      api,
		fs:       filesystem,
		bucket:   bucket,
		partSize: partSize,
		logger:   logger,
	}
}

// session tracks one upload through the protocol states.
type session struct {
	key      string
	state    State
	upload   s3types.MultipartUpload
	uploaded int64
}

// UploadFile uploads the file at localPath to key.
func (u *Uploader) UploadFile(
	ctx context.Context,
	key, localPath string,
	cfg *s3types.TransferOptionConfig,
) (result *s3types.UploadResult, err error) {
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

	file, err := u.fs.Open(localPath)
	if err != nil {
		return nil, u.localError(key, localPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, u.localError(key, localPath, err)
	}
	size := info.Size()

	parts, err := PlanParts(size, u.partSize)
	if err != nil {
		return nil, s3errors.NewObjectError("put", u.bucket.Name(), key, err)
	}

	contentType := cfg.ContentType
	if contentType == "" {
		contentType = detectContentType(io.NewSectionReader(file, 0, size))
	}

	s := &session{key: key}
	if err := u.initiate(ctx, s, contentType); err != nil {
		return nil, err
	}

	for i, p := range parts {
		if err := ctx.Err(); err != nil {
			return nil, s3errors.NewObjectError("put", u.bucket.Name(), key, err)
		}
		body := io.NewSectionReader(file, p.Offset, p.Size)
		if err := u.uploadPart(ctx, s, i+1, body, p.Size); err != nil {
			return nil, err
		}
		if tracker != nil {
			tracker.Update(s.uploaded, size)
		}
	}

	etag, err := u.complete(ctx, s)
	if err != nil {
		return nil, err
	}

	return &s3types.UploadResult{
		Key:      key,
		Size:     s.uploaded,
		ETag:     etag,
		UploadID: s.upload.UploadID,
		Parts:    s.upload.Parts,
		Duration: time.Since(start),
	}, nil
}

func (u *Uploader) localError(key, path string, err error) error {
	return s3errors.NewObjectError("put", u.bucket.Name(), key, apperrors.WrapPath(err, apperrors.CodeIO, "open", path))
}

// initiate performs POST ?uploads and records the upload id.
func (u *Uploader) initiate(ctx context.Context, s *session, contentType string) error {
	target := withQuery(u.bucket.ObjectURL(s.key), url.Values{"uploads": {""}})
	header := http.Header{"Content-Type": {contentType}}

	resp, err := u.api.Do(ctx, &s3api.Request{Method: http.MethodPost, URL: target, Header: header})
	if err != nil {
		return s3errors.NewObjectError("createMultipartUpload", u.bucket.Name(), s.key, err)
	}
	defer s3api.Discard(resp)

	if !wire.Success(resp.StatusCode) {
		return s3errors.FromResponse("createMultipartUpload", u.bucket.Name(), s.key, resp.StatusCode, wire.ReadError(resp))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return s3errors.NewObjectError("createMultipartUpload", u.bucket.Name(), s.key, err).WithStatus(resp.StatusCode)
	}

	var out wire.InitiateMultipartUploadResult
	if err := wire.Decode(body, &out); err != nil {
		return s3errors.NewObjectError("createMultipartUpload", u.bucket.Name(), s.key,
			fmt.Errorf("%w: %w", s3errors.ErrMalformedResponse, err)).WithStatus(resp.StatusCode)
	}
	if out.UploadID == "" {
		return s3errors.NewObjectError("createMultipartUpload", u.bucket.Name(), s.key, s3errors.ErrMissingUploadID).
			WithStatus(resp.StatusCode)
	}

	s.upload.UploadID = out.UploadID
	s.state = StateInitiated
	u.logger.Debug("multipart upload initiated",
		"bucket", u.bucket.Name(), "key", s.key, "upload_id", out.UploadID, "content_type", contentType)
	return nil
}

// uploadPart performs PUT ?partNumber&uploadId and records the part's ETag.
func (u *Uploader) uploadPart(ctx context.Context, s *session, number int, body io.Reader, size int64) error {
	target := withQuery(u.bucket.ObjectURL(s.key), url.Values{
		"partNumber": {strconv.Itoa(number)},
		"uploadId":   {s.upload.UploadID},
	})

	resp, err := u.api.Do(ctx, &s3api.Request{
		Method:        http.MethodPut,
		URL:           target,
		Body:          body,
		ContentLength: size,
	})
	if err != nil {
		return s3errors.NewObjectError("uploadPart", u.bucket.Name(), s.key, err)
	}
	defer s3api.Discard(resp)

	if !wire.Success(resp.StatusCode) {
		return s3errors.FromResponse("uploadPart", u.bucket.Name(), s.key, resp.StatusCode, wire.ReadError(resp))
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return s3errors.NewObjectError("uploadPart", u.bucket.Name(), s.key, s3errors.ErrMissingETag).
			WithStatus(resp.StatusCode)
	}

	s.upload.Parts = append(s.upload.Parts, s3types.CompletedPart{PartNumber: number, ETag: etag, Size: size})
	s.uploaded += size
	s.state = StatePartUploaded
	u.logger.Debug("part uploaded",
		"bucket", u.bucket.Name(), "key", s.key, "upload_id", s.upload.UploadID,
		"part", number, "etag", etag, "size", size)
	return nil
}

// complete performs POST ?uploadId with the collected parts. A 200 response
// carrying an error document is treated as a failure.
func (u *Uploader) complete(ctx context.Context, s *session) (string, error) {
	doc := wire.CompleteMultipartUpload{Xmlns: wire.Namespace}
	for _, p := range s.upload.Parts {
		doc.Parts = append(doc.Parts, wire.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	payload, err := wire.Encode(doc)
	if err != nil {
		return "", s3errors.NewObjectError("completeMultipartUpload", u.bucket.Name(), s.key, err)
	}

	target := withQuery(u.bucket.ObjectURL(s.key), url.Values{"uploadId": {s.upload.UploadID}})
	resp, err := u.api.Do(ctx, &s3api.Request{
		Method:        http.MethodPost,
		URL:           target,
		Body:          bytes.NewReader(payload),
		ContentLength: int64(len(payload)),
		Header:        http.Header{"Content-Type": {"application/xml"}},
	})
	if err != nil {
		return "", s3errors.NewObjectError("completeMultipartUpload", u.bucket.Name(), s.key, err)
	}
	defer s3api.Discard(resp)

	if !wire.Success(resp.StatusCode) {
		return "", s3errors.FromResponse("completeMultipartUpload", u.bucket.Name(), s.key, resp.StatusCode, wire.ReadError(resp))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", s3errors.NewObjectError("completeMultipartUpload", u.bucket.Name(), s.key, err).WithStatus(resp.StatusCode)
	}
	if wire.RootElement(body) == "Error" {
		return "", s3errors.FromResponse("completeMultipartUpload", u.bucket.Name(), s.key, resp.StatusCode,
			wire.APIError(resp.StatusCode, body))
	}

	var out wire.CompleteMultipartUploadResult
	if err := wire.Decode(body, &out); err != nil && len(bytes.TrimSpace(body)) > 0 {
		return "", s3errors.NewObjectError("completeMultipartUpload", u.bucket.Name(), s.key,
			fmt.Errorf("%w: %w", s3errors.ErrMalformedResponse, err)).WithStatus(resp.StatusCode)
	}

	s.state = StateCompleted
	etag := strings.Trim(out.ETag, `"`)
	u.logger.Debug("multipart upload completed",
		"bucket", u.bucket.Name(), "key", s.key, "upload_id", s.upload.UploadID,
		"parts", len(s.upload.Parts), "size", s.uploaded, "etag", etag)
	return etag, nil
}

// Part is a byte range of the source file.
type Part struct {
	Offset int64
	Size   int64
}

// PlanParts splits size bytes into parts of partSize. A non-positive
// partSize, or a file no larger than one part, yields a single part.
func PlanParts(size, partSize int64) ([]Part, error) {
	if size < 0 {
		return nil, errors.New("negative size")
	}
	if partSize <= 0 || size <= partSize {
		return []Part{{Offset: 0, Size: size}}, nil
	}
	if partSize < MinPartSize {
		return nil, fmt.Errorf("%w: part size %d is below the %d byte minimum",
			s3errors.ErrInvalidInput, partSize, MinPartSize)
	}

	count := (size + partSize - 1) / partSize
	if count > MaxParts {
		return nil, fmt.Errorf("%w: %d parts of %d bytes exceed the %d part limit",
			s3errors.ErrInvalidInput, count, partSize, MaxParts)
	}

	parts := make([]Part, 0, count)
	for off := int64(0); off < size; off += partSize {
		parts = append(parts, Part{Offset: off, Size: min(partSize, size-off)})
	}
	return parts, nil
}

func detectContentType(r io.Reader) string {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return defaultContentType
	}
	return mt.String()
}

func withQuery(u *url.URL, q url.Values) *url.URL {
	u.RawQuery = q.Encode()
	return u
}
