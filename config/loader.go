package config

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
	parentfs "github.com/input-output-hk/s3-artifact-handler/fs"
	"github.com/input-output-hk/s3-artifact-handler/fs/billy"
)

// EnvPrefix prefixes environment variable overrides.
const EnvPrefix = "S3_ARTIFACT"

// defaultConfigType is used for files whose extension viper does not know.
const defaultConfigType = "toml"

// keys lists every setting so each can be bound to its environment variable.
var keys = []string{
	"endpoint",
	"access_key",
	"pass_key",
	"secret_key",
	"session_token",
	"region",
	"url_style",
	"signature_ttl",
	"part_size",
	"log_level",
}

type loader struct {
	fs        parentfs.Filesystem
	envFile   string
	envPrefix string
}

// Option configures Load.
type Option func(*loader)

// WithFilesystem sets the filesystem the config file is read from.
func WithFilesystem(filesystem parentfs.Filesystem) Option {
	return func(l *loader) {
		l.fs = filesystem
	}
}

// WithEnvFile sets the .env file loaded before reading overrides. An empty
// path disables .env loading.
func WithEnvFile(path string) Option {
	return func(l *loader) {
		l.envFile = path
	}
}

// WithEnvPrefix replaces the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *loader) {
		l.envPrefix = prefix
	}
}

// Load reads, merges and validates the configuration at path.
func Load(path string, opts ...Option) (*Config, error) {
	l := &loader{
		fs:        billy.NewBaseOSFS(),
		envFile:   ".env",
		envPrefix: EnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.loadEnvFile(); err != nil {
		return nil, err
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeIO, "read config", path)
	}

	v := viper.New()
	v.SetConfigType(configType(path))
	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "bind env")
		}
	}

	v.SetDefault("region", DefaultRegion)
	v.SetDefault("url_style", DefaultURLStyle)
	v.SetDefault("signature_ttl", DefaultSignatureTTL)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeInvalidConfig, "parse config", path)
	}

	if !v.IsSet("pass_key") && v.IsSet("secret_key") {
		v.Set("pass_key", v.GetString("secret_key"))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeInvalidConfig, "decode config", path)
	}
	cfg.URLStyle = strings.ToLower(strings.TrimSpace(cfg.URLStyle))

	if err := Validate(&cfg); err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeInvalidConfig, "validate config", path)
	}
	return &cfg, nil
}

// loadEnvFile loads the .env file into the process environment. Variables
// that are already set win. A missing file is not an error.
func (l *loader) loadEnvFile() error {
	if l.envFile == "" {
		return nil
	}
	err := godotenv.Load(l.envFile)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return apperrors.WrapPath(err, apperrors.CodeInvalidConfig, "load env file", l.envFile)
}

func configType(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext != "" && slices.Contains(viper.SupportedExts, ext) {
		return ext
	}
	return defaultConfigType
}
