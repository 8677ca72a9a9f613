// Package s3types provides shared type definitions for the S3 module.
package s3types

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go/encoding/httpbinding"

	s3errors "github.com/input-output-hk/s3-artifact-handler/aws/s3/errors"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/validation"
	"github.com/input-output-hk/s3-artifact-handler/fs"
)

// URLStyle selects how the bucket name is placed in request URLs.
type URLStyle string

const (
	// URLStylePath addresses objects as https://endpoint/bucket/key.
	URLStylePath URLStyle = "path"

	// URLStyleVirtualHost addresses objects as https://bucket.endpoint/key.
	URLStyleVirtualHost URLStyle = "virtual"
)

// DefaultRegion is used for request signing when no region is configured.
const DefaultRegion = "us-east-1"

// ParseURLStyle converts a configuration value into a URLStyle.
func ParseURLStyle(s string) (URLStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "path":
		return URLStylePath, nil
	case "virtual", "virtual-host", "virtualhost":
		return URLStyleVirtualHost, nil
	default:
		return "", s3errors.NewError("parseURLStyle", s3errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("unknown url style %q", s))
	}
}

// Bucket identifies a bucket on an S3-compatible endpoint. It is immutable
// once built with NewBucket.
type Bucket struct {
	endpoint url.URL
	name     string
	region   string
	style    URLStyle
}

// NewBucket validates the endpoint and bucket name and returns a Bucket.
func NewBucket(endpoint *url.URL, name, region string, style URLStyle) (Bucket, error) {
	if endpoint == nil || (endpoint.Scheme != "http" && endpoint.Scheme != "https") || endpoint.Host == "" {
		return Bucket{}, s3errors.NewBucketError("newBucket", name, s3errors.ErrInvalidEndpoint).
			WithMessage("endpoint must be an absolute http or https URL")
	}
	if err := validation.ValidateBucketName(name); err != nil {
		return Bucket{}, err
	}
	if style == "" {
		style = URLStylePath
	}

	ep := *endpoint
	ep.Path = strings.TrimRight(ep.Path, "/")
	ep.RawPath = ""
	ep.RawQuery = ""
	ep.Fragment = ""

	return Bucket{endpoint: ep, name: name, region: region, style: style}, nil
}

// Name returns the bucket name.
func (b Bucket) Name() string { return b.name }

// Region returns the configured region, which may be empty.
func (b Bucket) Region() string { return b.region }

// SigningRegion returns the region used in request signatures.
func (b Bucket) SigningRegion() string {
	if b.region == "" {
		return DefaultRegion
	}
	return b.region
}

// Style returns the addressing style.
func (b Bucket) Style() URLStyle { return b.style }

// Endpoint returns a copy of the endpoint URL.
func (b Bucket) Endpoint() *url.URL {
	ep := b.endpoint
	return &ep
}

// BucketURL returns the URL addressing the bucket itself.
func (b Bucket) BucketURL() *url.URL {
	u := b.endpoint
	if b.style == URLStyleVirtualHost {
		u.Host = b.name + "." + u.Host
		u.Path += "/"
		return &u
	}
	u.Path += "/" + b.name
	return &u
}

// ObjectURL returns the URL addressing key inside the bucket. The key is
// escaped with the S3 URI encoding rules.
func (b Bucket) ObjectURL(key string) *url.URL {
	u := b.endpoint
	prefix := u.Path
	if b.style == URLStyleVirtualHost {
		u.Host = b.name + "." + u.Host
	} else {
		prefix += "/" + b.name
	}
	u.Path = prefix + "/" + key
	u.RawPath = prefix + "/" + httpbinding.EscapePath(key, false)
	return &u
}

// String implements fmt.Stringer.
func (b Bucket) String() string {
	return b.BucketURL().String()
}

// Credentials hold static access keys. The secret is redacted when the value
// is formatted.
type Credentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// String implements fmt.Stringer without revealing the secret.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AccessKey: %q, SecretKey: <redacted>}", c.AccessKey)
}

// GoString implements fmt.GoStringer without revealing the secret.
func (c Credentials) GoString() string {
	return c.String()
}

// LogValue implements slog.LogValuer without revealing the secret.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("access_key", c.AccessKey))
}

// IsZero reports whether no access key is set.
func (c Credentials) IsZero() bool {
	return c.AccessKey == "" && c.SecretKey == ""
}

// Provider returns a static credentials provider for c.
func (c Credentials) Provider() aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, c.SessionToken)
}

// CompletedPart identifies an uploaded part of a multipart upload.
type CompletedPart struct {
	PartNumber int
	ETag       string
	Size       int64
}

// MultipartUpload is the server-side session of one Put call.
type MultipartUpload struct {
	UploadID string
	Parts    []CompletedPart
}

// ObjectInfo contains metadata about an object.
type ObjectInfo struct {
	// Key is the S3 object key
	Key string

	// Size is the object size in bytes
	Size int64

	// ETag is the S3 entity tag for the object
	ETag string

	// ContentType is the MIME type of the object
	ContentType string

	// LastModified is when the object was last modified
	LastModified time.Time
}

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations can provide real-time progress updates during uploads and downloads.
type ProgressTracker interface {
	// Update is called periodically with transfer progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// UploadResult contains the result of an upload operation.
type UploadResult struct {
	// Key is the S3 object key that was uploaded
	Key string

	// Size is the size of the uploaded object in bytes
	Size int64

	// ETag is the S3 entity tag for the uploaded object
	ETag string

	// UploadID is the multipart upload session that produced the object
	UploadID string

	// Parts lists the uploaded parts in order
	Parts []CompletedPart

	// Duration is how long the upload took
	Duration time.Duration
}

// DownloadResult contains the result of a download operation.
type DownloadResult struct {
	// Key is the S3 object key that was downloaded
	Key string

	// Size is the size of the downloaded object in bytes
	Size int64

	// ETag is the S3 entity tag for the downloaded object
	ETag string

	// Duration is how long the download took
	Duration time.Duration
}

// HTTPClient sends HTTP requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Configuration types for functional options

// ClientConfig holds configuration for the S3 client.
type ClientConfig struct {
	HTTPClient   HTTPClient
	Timeout      time.Duration
	SignatureTTL time.Duration
	PartSize     int64
	Clock        func() time.Time
	Logger       *slog.Logger
	Filesystem   fs.Filesystem // Filesystem abstraction for file operations
}

// TransferOptionConfig holds per-call configuration for Put and Get.
type TransferOptionConfig struct {
	ContentType     string
	ProgressTracker ProgressTracker
}

// Option is a functional option for configuring the S3 client.
type (
	Option func(*ClientConfig)
	// TransferOption is a functional option for configuring a single Put or Get.
	TransferOption func(*TransferOptionConfig)
)
