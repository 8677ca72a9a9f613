package head

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	s3errors "github.com/input-output-hk/s3-artifact-handler/aws/s3/errors"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/s3api"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/wire"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
)

// Stat returns the metadata of key. HEAD responses carry no body, so a
// missing object is recognised by its status alone.
func Stat(ctx context.Context, api s3api.API, bucket s3types.Bucket, key string) (*s3types.ObjectInfo, error) {
	resp, err := api.Do(ctx, &s3api.Request{Method: http.MethodHead, URL: bucket.ObjectURL(key)})
	if err != nil {
		return nil, s3errors.NewObjectError("head", bucket.Name(), key, err)
	}
	defer s3api.Discard(resp)

	if !wire.Success(resp.StatusCode) {
		return nil, s3errors.FromResponse("head", bucket.Name(), key, resp.StatusCode, wire.APIError(resp.StatusCode, nil))
	}

	return InfoFromHeader(key, resp.Header, resp.ContentLength), nil
}

// InfoFromHeader builds ObjectInfo from response headers. A negative
// contentLength falls back to the Content-Length header.
func InfoFromHeader(key string, h http.Header, contentLength int64) *s3types.ObjectInfo {
	if contentLength < 0 {
		contentLength, _ = strconv.ParseInt(h.Get("Content-Length"), 10, 64)
	}
	info := &s3types.ObjectInfo{
		Key:         key,
		Size:        contentLength,
		ETag:        strings.Trim(h.Get("ETag"), `"`),
		ContentType: h.Get("Content-Type"),
	}
	if lm := h.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			info.LastModified = t.UTC()
		}
	}
	return info
}
