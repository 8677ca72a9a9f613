package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/s3-artifact-handler/config"
	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
	"github.com/input-output-hk/s3-artifact-handler/internal/testutil"
)

const testBucket = "artifacts"

// setupWorkspace creates a working directory holding a config file that
// points at a fake store, and changes into it.
func setupWorkspace(t *testing.T) (*testutil.FakeS3, string) {
	t.Helper()

	fake := testutil.NewFakeS3(t)
	dir := t.TempDir()
	t.Chdir(dir)

	conf := fmt.Sprintf(`endpoint = %q
access_key = %q
pass_key = %q
region = %q
signature_ttl = "10s"
`, fake.Endpoint().String(), testutil.FakeAccessKey, testutil.FakeSecretKey, testutil.FakeRegion)
	require.NoError(t, os.WriteFile("s3.toml", []byte(conf), 0o600))

	require.NoError(t, os.MkdirAll(filepath.Join("src", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("src", "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join("src", "sub", "b.txt"), []byte("world"), 0o644))

	return fake, dir
}

func common() Common {
	return Common{ConfigFile: "s3.toml", Bucket: testBucket}
}

func TestUploadDownload_RoundTrip(t *testing.T) {
	fake, dir := setupWorkspace(t)

	var stdout, stderr bytes.Buffer
	err := Upload(t.Context(), UploadRequest{
		Common: common(),
		Object: "build-42",
		Files:  []string{"src/"},
	}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "build-42\n", stdout.String())
	assert.True(t, fake.HasBucket(testBucket))
	_, ok := fake.Object(testBucket, "build-42")
	assert.True(t, ok)
	assert.NoFileExists(t, filepath.Join(dir, "export.tar.gz"))

	err = Download(t.Context(), DownloadRequest{
		Common: common(),
		Object: "build-42",
		Dest:   "out",
		Remove: true,
	}, &stderr)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out", "src", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "out", "src", "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))

	assert.NoFileExists(t, filepath.Join(dir, "local_download.tar.gz"))
	assert.Empty(t, fake.Keys(testBucket))
}

func TestUpload_GeneratedKey(t *testing.T) {
	fake, _ := setupWorkspace(t)

	var stdout bytes.Buffer
	err := Upload(t.Context(), UploadRequest{
		Common: common(),
		Files:  []string{"src/a.txt", "src/sub/*.txt"},
	}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)

	key := strings.TrimSpace(stdout.String())
	_, err = uuid.Parse(key)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, fake.Keys(testBucket))
}

func TestUpload_Errors(t *testing.T) {
	t.Run("no files", func(t *testing.T) {
		err := Upload(t.Context(), UploadRequest{Common: common()}, &bytes.Buffer{}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
	})

	t.Run("missing config", func(t *testing.T) {
		t.Chdir(t.TempDir())
		err := Upload(t.Context(), UploadRequest{Common: common(), Files: []string{"x"}}, &bytes.Buffer{}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load config")
		assert.Equal(t, apperrors.CodeIO, apperrors.CodeOf(err))
	})

	t.Run("invalid bucket name", func(t *testing.T) {
		setupWorkspace(t)
		c := common()
		c.Bucket = "Bad_Bucket"
		err := Upload(t.Context(), UploadRequest{Common: c, Files: []string{"src/"}}, &bytes.Buffer{}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Bad_Bucket")
	})

	t.Run("invalid pattern", func(t *testing.T) {
		setupWorkspace(t)
		var stdout bytes.Buffer
		err := Upload(t.Context(), UploadRequest{Common: common(), Files: []string{"src/[a"}}, &stdout, &bytes.Buffer{})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodePattern, apperrors.CodeOf(err))
		assert.Empty(t, stdout.String())
	})

	t.Run("store failure", func(t *testing.T) {
		fake, dir := setupWorkspace(t)
		fake.FailNext("POST", "uploads", 500)
		var stdout bytes.Buffer
		err := Upload(t.Context(), UploadRequest{Common: common(), Files: []string{"src/"}}, &stdout, &bytes.Buffer{})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeStore, apperrors.CodeOf(err))
		assert.Empty(t, stdout.String())
		assert.NoFileExists(t, filepath.Join(dir, "export.tar.gz"))
	})
}

func TestDownload_MissingObject(t *testing.T) {
	fake, _ := setupWorkspace(t)
	fake.CreateBucket(testBucket)

	err := Download(t.Context(), DownloadRequest{Common: common(), Object: "nope", Dest: "."}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStore, apperrors.CodeOf(err))
}

func TestCredentialsProvider(t *testing.T) {
	t.Run("static keys", func(t *testing.T) {
		cfg := &config.Config{AccessKey: "AKID", PassKey: "secret"}
		p, err := credentialsProvider(t.Context(), cfg)
		require.NoError(t, err)

		creds, err := p.Retrieve(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "AKID", creds.AccessKeyID)
		assert.Equal(t, "secret", creds.SecretAccessKey)
	})

	t.Run("default chain", func(t *testing.T) {
		stubAWSConfig(t, aws.Config{
			Credentials: credentials.NewStaticCredentialsProvider("chain-id", "chain-secret", ""),
		}, nil)

		p, err := credentialsProvider(t.Context(), &config.Config{Region: "eu-west-1"})
		require.NoError(t, err)
		creds, err := p.Retrieve(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "chain-id", creds.AccessKeyID)
	})

	t.Run("chain without credentials", func(t *testing.T) {
		stubAWSConfig(t, aws.Config{}, nil)

		_, err := credentialsProvider(t.Context(), &config.Config{})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInvalidConfig, apperrors.CodeOf(err))
	})

	t.Run("chain error", func(t *testing.T) {
		stubAWSConfig(t, aws.Config{}, errors.New("shared config unreadable"))

		_, err := credentialsProvider(t.Context(), &config.Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shared config unreadable")
	})
}

func stubAWSConfig(t *testing.T, cfg aws.Config, err error) {
	t.Helper()
	orig := loadAWSConfig
	t.Cleanup(func() { loadAWSConfig = orig })
	loadAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return cfg, err
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
		check   func(t *testing.T, out string)
	}{
		{
			name: "defaults to info text",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "level=INFO")
				assert.NotContains(t, out, "level=DEBUG")
			},
		},
		{
			name:   "debug json",
			level:  "debug",
			format: "json",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `"level":"DEBUG"`)
			},
		},
		{
			name:  "warn drops info",
			level: "WARN",
			check: func(t *testing.T, out string) {
				assert.NotContains(t, out, "level=INFO")
				assert.Contains(t, out, "level=WARN")
			},
		},
		{name: "unknown level", level: "loud", wantErr: true},
		{name: "unknown format", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(&buf, tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)

			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			tt.check(t, buf.String())
		})
	}
}
