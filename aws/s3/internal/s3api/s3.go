// Package s3api defines the request seam between S3 operations and the
// network so operations can be tested against fakes.
package s3api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/presign"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
)

// Request describes an S3 REST call before signing.
type Request struct {
	// Method is the HTTP method
	Method string

	// URL is the unsigned target, including operation query parameters
	URL *url.URL

	// Body is the request payload, or nil
	Body io.Reader

	// ContentLength is the payload size; it must be set when Body is not nil
	ContentLength int64

	// Header holds extra unsigned headers such as Content-Type
	Header http.Header
}

// API sends S3 requests. Implementations own authentication.
type API interface {
	Do(ctx context.Context, req *Request) (*http.Response, error)
}

// Presigned signs every request with a fresh query presignature right
// before sending it.
type Presigned struct {
	client    s3types.HTTPClient
	presigner *presign.Presigner
	logger    *slog.Logger
}

var _ API = (*Presigned)(nil)

// NewPresigned creates an API that presigns with p and sends with client.
func NewPresigned(client s3types.HTTPClient, p *presign.Presigner, logger *slog.Logger) *Presigned {
	return &Presigned{client: client, presigner: p, logger: logger}
}

// Do implements API.
func (p *Presigned) Do(ctx context.Context, r *Request) (*http.Response, error) {
	signedURL, signedHeader, err := p.presigner.Presign(ctx, r.Method, r.URL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, signedURL.String(), r.Body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.URL = signedURL
	if r.Body != nil {
		req.ContentLength = r.ContentLength
		if r.ContentLength == 0 {
			req.Body = http.NoBody
		}
	}
	for k, vs := range signedHeader {
		req.Header[k] = vs
	}
	for k, vs := range r.Header {
		req.Header[k] = vs
	}

	p.logger.Debug("sending presigned request",
		"method", r.Method, "host", signedURL.Host, "path", signedURL.Path)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.Method, r.URL.Redacted(), err)
	}
	return resp, nil
}

// Discard drains and closes a response body so the connection can be reused.
func Discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
