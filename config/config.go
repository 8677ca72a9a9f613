// Package config loads the connection settings of the artifact handler.
//
// Settings come from a key-value file, TOML unless the file extension names
// another format viper understands, and may be overridden by environment
// variables prefixed with S3_ARTIFACT_. A .env file in the working directory
// is loaded into the environment first when present.
//
// A minimal file:
//
//	endpoint = "http://localhost:9000"
//	access_key = "minioadmin"
//	pass_key = "minioadmin"
//
// Optional keys are region, url_style (path or virtual), signature_ttl,
// part_size and log_level. secret_key is accepted in place of pass_key.
package config

import (
	"net/url"
	"time"

	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
)

// Defaults applied before the file and environment are read.
const (
	DefaultRegion       = "minio"
	DefaultURLStyle     = "path"
	DefaultSignatureTTL = time.Second
)

// Config holds the store connection settings.
type Config struct {
	Endpoint     string        `mapstructure:"endpoint" validate:"required,url,http_url"`
	AccessKey    string        `mapstructure:"access_key" validate:"required_with=PassKey"`
	PassKey      string        `mapstructure:"pass_key" validate:"required_with=AccessKey"`
	SessionToken string        `mapstructure:"session_token"`
	Region       string        `mapstructure:"region"`
	URLStyle     string        `mapstructure:"url_style" validate:"oneof=path virtual"`
	SignatureTTL time.Duration `mapstructure:"signature_ttl" validate:"gte=0"`
	PartSize     int64         `mapstructure:"part_size" validate:"gte=0"`
	LogLevel     string        `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// HasCredentials reports whether static keys are configured. Without them
// callers fall back to the default AWS credential chain.
func (c *Config) HasCredentials() bool {
	return c.AccessKey != "" && c.PassKey != ""
}

// Credentials returns the configured static keys.
func (c *Config) Credentials() s3types.Credentials {
	return s3types.Credentials{
		AccessKey:    c.AccessKey,
		SecretKey:    c.PassKey,
		SessionToken: c.SessionToken,
	}
}

// Bucket returns the identity of the named bucket on the configured endpoint.
func (c *Config) Bucket(name string) (s3types.Bucket, error) {
	endpoint, err := url.Parse(c.Endpoint)
	if err != nil {
		return s3types.Bucket{}, apperrors.WrapPath(err, apperrors.CodeInvalidConfig, "bucket", c.Endpoint)
	}
	style, err := s3types.ParseURLStyle(c.URLStyle)
	if err != nil {
		return s3types.Bucket{}, apperrors.Wrap(err, apperrors.CodeInvalidConfig, "bucket")
	}
	return s3types.NewBucket(endpoint, name, c.Region, style)
}
