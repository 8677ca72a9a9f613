// Package handlers implements the business logic of the s3-artifact CLI
// commands.
package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/input-output-hk/s3-artifact-handler/archive"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
	"github.com/input-output-hk/s3-artifact-handler/config"
	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
	"github.com/input-output-hk/s3-artifact-handler/fs/billy"
	"github.com/input-output-hk/s3-artifact-handler/scanner"
	"github.com/input-output-hk/s3-artifact-handler/transfer"
)

// Common holds the settings shared by every command.
type Common struct {
	ConfigFile string
	Bucket     string
	LogLevel   string
	LogFormat  string
}

// Factory function variables - can be replaced in tests.
var (
	// loadConfig reads the store configuration file.
	loadConfig = func(path string) (*config.Config, error) {
		return config.Load(path)
	}

	// loadAWSConfig resolves the default AWS credential chain.
	loadAWSConfig = awsconfig.LoadDefaultConfig
)

// newSession loads the configuration and assembles a Transfer over the
// native filesystem for one command invocation.
func newSession(ctx context.Context, c Common, stderr io.Writer) (*transfer.Transfer, *slog.Logger, error) {
	cfg, err := loadConfig(c.ConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := c.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logger, err := NewLogger(stderr, level, c.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	bucket, err := cfg.Bucket(c.Bucket)
	if err != nil {
		return nil, nil, fmt.Errorf("bucket %q: %w", c.Bucket, err)
	}

	creds, err := credentialsProvider(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []s3types.Option{s3.WithLogger(logger)}
	if cfg.SignatureTTL > 0 {
		opts = append(opts, s3.WithSignatureTTL(cfg.SignatureTTL))
	}
	if cfg.PartSize > 0 {
		opts = append(opts, s3.WithPartSize(cfg.PartSize))
	}

	client, err := s3.New(bucket, creds, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create client: %w", err)
	}

	osfs := billy.NewBaseOSFS()
	t := transfer.New(client,
		archive.NewTarGzArchiver(archive.WithFilesystem(osfs), archive.WithLogger(logger)),
		scanner.NewExpander(scanner.WithFilesystem(osfs), scanner.WithLogger(logger)),
		transfer.WithFilesystem(osfs),
		transfer.WithLogger(logger),
	)

	logger.Debug("session ready", "bucket", bucket.Name(), "endpoint", bucket.Endpoint().String())
	return t, logger, nil
}

// credentialsProvider returns the static keys from cfg, or the default AWS
// credential chain when none are configured.
func credentialsProvider(ctx context.Context, cfg *config.Config) (aws.CredentialsProvider, error) {
	if cfg.HasCredentials() {
		return cfg.Credentials().Provider(), nil
	}

	awsCfg, err := loadAWSConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidConfig, "load aws config")
	}
	if awsCfg.Credentials == nil {
		return nil, apperrors.New(apperrors.CodeInvalidConfig, "load aws config",
			"no access_key/pass_key configured and no default AWS credentials found")
	}
	return awsCfg.Credentials, nil
}

// NewLogger creates a logger writing to w. An empty level means info.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, apperrors.New(apperrors.CodeInvalidInput, "log level",
				fmt.Sprintf("unknown level %q", level))
		}
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, apperrors.New(apperrors.CodeInvalidInput, "log format",
			fmt.Sprintf("unknown format %q", format))
	}
}
