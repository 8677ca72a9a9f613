package multipart

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/s3-artifact-handler/aws/s3/errors"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/presign"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/internal/s3api"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
	"github.com/input-output-hk/s3-artifact-handler/fs/billy"
	"github.com/input-output-hk/s3-artifact-handler/internal/testutil"
)

func TestPlanParts(t *testing.T) {
	const mib = 1 << 20

	tests := []struct {
		name     string
		size     int64
		partSize int64
		want     []Part
		wantErr  bool
	}{
		{name: "zero part size is one part", size: 100, partSize: 0, want: []Part{{0, 100}}},
		{name: "empty file", size: 0, partSize: 5 * mib, want: []Part{{0, 0}}},
		{name: "fits in one part", size: 5 * mib, partSize: 5 * mib, want: []Part{{0, 5 * mib}}},
		{
			name:     "short last part",
			size:     12 * mib,
			partSize: 5 * mib,
			want:     []Part{{0, 5 * mib}, {5 * mib, 5 * mib}, {10 * mib, 2 * mib}},
		},
		{name: "part size below minimum", size: 12 * mib, partSize: mib, wantErr: true},
		{name: "too many parts", size: 5 * mib * (MaxParts + 1), partSize: 5 * mib, wantErr: true},
		{name: "negative size", size: -1, partSize: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanParts(tt.size, tt.partSize)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := PlanParts(12*mib, mib)
	assert.ErrorIs(t, err, s3errors.ErrInvalidInput)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "initiated", StateInitiated.String())
	assert.Equal(t, "part-uploaded", StatePartUploaded.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func newUploader(t *testing.T, fake *testutil.FakeS3, partSize int64) (*Uploader, *billy.FS) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := presign.New(fake.Credentials().Provider(), testutil.FakeRegion, 0, nil)
	api := s3api.NewPresigned(http.DefaultClient, p, logger)
	memfs := billy.NewInMemoryFS()
	return NewUploader(api, memfs, fake.Bucket(t, "bucket"), partSize, logger), memfs
}

func TestUploader_UploadFile(t *testing.T) {
	fake := testutil.NewFakeS3(t, testutil.WithFakeBuckets("bucket"))
	u, memfs := newUploader(t, fake, MinPartSize)

	data := testutil.NewTestDataGenerator(1).Bytes(MinPartSize + 10)
	require.NoError(t, memfs.WriteFile("/f", data, 0o644))

	tracker := &testutil.MockProgressTracker{}
	result, err := u.UploadFile(context.Background(), "k", "/f", &s3types.TransferOptionConfig{ProgressTracker: tracker})
	require.NoError(t, err)

	require.Len(t, result.Parts, 2)
	assert.Equal(t, int64(MinPartSize), result.Parts[0].Size)
	assert.Equal(t, int64(10), result.Parts[1].Size)
	assert.NotContains(t, result.ETag, `"`)

	assert.Equal(t, []testutil.ProgressUpdate{
		{Transferred: MinPartSize, Total: MinPartSize + 10},
		{Transferred: MinPartSize + 10, Total: MinPartSize + 10},
	}, tracker.Updates)
	assert.True(t, tracker.CompleteCalled)

	stored, ok := fake.Object("bucket", "k")
	require.True(t, ok)
	assert.Equal(t, data, stored)
}

func TestUploader_MissingUploadID(t *testing.T) {
	api := stubAPI{body: `<InitiateMultipartUploadResult><Bucket>bucket</Bucket></InitiateMultipartUploadResult>`}
	fake := testutil.NewFakeS3(t)
	memfs := billy.NewInMemoryFS()
	require.NoError(t, memfs.WriteFile("/f", []byte("x"), 0o644))

	u := NewUploader(api, memfs, fake.Bucket(t, "bucket"), 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := u.UploadFile(context.Background(), "k", "/f", &s3types.TransferOptionConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, s3errors.ErrMissingUploadID)
}

func TestUploader_MalformedInitiate(t *testing.T) {
	api := stubAPI{body: `not xml at all <`}
	fake := testutil.NewFakeS3(t)
	memfs := billy.NewInMemoryFS()
	require.NoError(t, memfs.WriteFile("/f", []byte("x"), 0o644))

	u := NewUploader(api, memfs, fake.Bucket(t, "bucket"), 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := u.UploadFile(context.Background(), "k", "/f", &s3types.TransferOptionConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, s3errors.ErrMalformedResponse)
}

// stubAPI answers every request with 200 and a fixed body.
type stubAPI struct {
	body string
}

func (s stubAPI) Do(context.Context, *s3api.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}
