// Package presign produces SigV4 query-presigned URLs for S3 requests.
//
// Every request the client sends is presigned immediately before it is
// issued with a short validity window. Credentials travel only as a
// signature in the query string; no Authorization header is sent.
package presign

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

const (
	// ServiceName is the SigV4 service identifier for S3.
	ServiceName = "s3"

	// UnsignedPayload marks the body as excluded from the signature.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// ExpiresParam is the query parameter carrying the validity window.
	ExpiresParam = "X-Amz-Expires"

	// DefaultTTL is the validity window used when none is configured.
	DefaultTTL = time.Second
)

// Presigner signs request URLs.
type Presigner struct {
	signer *v4.Signer
	creds  aws.CredentialsProvider
	region string
	ttl    time.Duration
	now    func() time.Time
}

// New creates a Presigner. A ttl of zero selects DefaultTTL and a nil clock
// selects time.Now.
func New(creds aws.CredentialsProvider, region string, ttl time.Duration, now func() time.Time) *Presigner {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Presigner{
		signer: v4.NewSigner(func(o *v4.SignerOptions) {
			o.DisableURIPathEscaping = true
		}),
		creds:  creds,
		region: region,
		ttl:    ttl,
		now:    now,
	}
}

// TTL returns the validity window of signed URLs.
func (p *Presigner) TTL() time.Duration {
	return p.ttl
}

// ExpiresSeconds returns the X-Amz-Expires value for the configured TTL,
// rounded up to whole seconds and never less than one.
func (p *Presigner) ExpiresSeconds() int64 {
	secs := int64(math.Ceil(p.ttl.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Presign returns a presigned copy of u for method together with the
// headers that must accompany the request. The Host header is implied by
// the URL and omitted.
func (p *Presigner) Presign(ctx context.Context, method string, u *url.URL) (*url.URL, http.Header, error) {
	creds, err := p.creds.Retrieve(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve credentials: %w", err)
	}

	target := *u
	q := target.Query()
	q.Set(ExpiresParam, strconv.FormatInt(p.ExpiresSeconds(), 10))
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	// String() re-escapes the path; keep the exact escaping we signed over.
	req.URL.Path = target.Path
	req.URL.RawPath = target.RawPath

	signed, signedHeaders, err := p.signer.PresignHTTP(
		ctx, creds, req, UnsignedPayload, ServiceName, p.region, p.now().UTC(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("presign %s: %w", method, err)
	}

	out, err := url.Parse(signed)
	if err != nil {
		return nil, nil, fmt.Errorf("parse presigned url: %w", err)
	}

	header := make(http.Header)
	for k, vs := range signedHeaders {
		if http.CanonicalHeaderKey(k) == "Host" {
			continue
		}
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	return out, header, nil
}
