package transfer_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/s3-artifact-handler/archive"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3"
	s3errors "github.com/input-output-hk/s3-artifact-handler/aws/s3/errors"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
	"github.com/input-output-hk/s3-artifact-handler/fs"
	"github.com/input-output-hk/s3-artifact-handler/fs/billy"
	"github.com/input-output-hk/s3-artifact-handler/internal/testutil"
	"github.com/input-output-hk/s3-artifact-handler/scanner"
	"github.com/input-output-hk/s3-artifact-handler/transfer"
)

const bucketName = "transfers"

type harness struct {
	fake *testutil.FakeS3
	fs   fs.Filesystem
	tr   *transfer.Transfer
}

// newHarness wires a Transfer over a FakeS3 and an OS filesystem chrooted
// at a temp dir holding a small source tree.
func newHarness(t *testing.T, fakeOpts []testutil.FakeOption, opts ...transfer.Option) *harness {
	t.Helper()

	fake := testutil.NewFakeS3(t, fakeOpts...)
	fsys := billy.NewOSFS(t.TempDir())
	testutil.WriteTree(t, fsys, "src", map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "world",
	})

	client, err := s3.New(fake.Bucket(t, bucketName), fake.Credentials().Provider(), s3.WithFilesystem(fsys))
	require.NoError(t, err)

	opts = append([]transfer.Option{transfer.WithFilesystem(fsys)}, opts...)
	tr := transfer.New(client,
		archive.NewTarGzArchiverWithFS(fsys),
		scanner.NewExpander(scanner.WithFilesystem(fsys)),
		opts...,
	)
	return &harness{fake: fake, fs: fsys, tr: tr}
}

func (h *harness) exists(t *testing.T, path string) bool {
	t.Helper()
	ok, err := h.fs.Exists(path)
	require.NoError(t, err)
	return ok
}

func TestTransfer_RoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	key, err := h.tr.Upload(ctx, []string{"src/a.txt", "src/sub/"}, "test-1")
	require.NoError(t, err)
	assert.Equal(t, "test-1", key)

	assert.True(t, h.fake.HasBucket(bucketName), "bucket is created on demand")
	assert.Equal(t, []string{"test-1"}, h.fake.Keys(bucketName))
	assert.Equal(t, "application/gzip", h.fake.ObjectContentType(bucketName, "test-1"))
	assert.False(t, h.exists(t, transfer.DefaultArchiveName), "local archive is removed")

	require.NoError(t, h.tr.Download(ctx, "test-1", "restored", transfer.DownloadOptions{}))

	assert.Equal(t, map[string]string{
		"src/a.txt":     "hello",
		"src/sub/b.txt": "world",
	}, testutil.ReadTree(t, h.fs, "restored"))
	assert.False(t, h.exists(t, transfer.DefaultDownloadName))
	assert.Equal(t, []string{"test-1"}, h.fake.Keys(bucketName), "remote object is kept by default")
}

func TestTransfer_Upload_GeneratedKey(t *testing.T) {
	h := newHarness(t, nil)

	key, err := h.tr.Upload(context.Background(), []string{"src/**/*.txt"}, "")
	require.NoError(t, err)
	assert.Len(t, key, 36)
	_, err = uuid.Parse(key)
	assert.NoError(t, err)
	assert.Equal(t, []string{key}, h.fake.Keys(bucketName))
}

func TestTransfer_Upload_KeyGenerator(t *testing.T) {
	h := newHarness(t, nil, transfer.WithKeyGenerator(func() string { return "fixed-key" }))

	key, err := h.tr.Upload(context.Background(), []string{"src/"}, "")
	require.NoError(t, err)
	assert.Equal(t, "fixed-key", key)
}

func TestTransfer_Upload_NoMatches(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	key, err := h.tr.Upload(ctx, []string{"nothing/**/*.bin"}, "empty")
	require.NoError(t, err)
	assert.Equal(t, "empty", key)

	data, ok := h.fake.Object(bucketName, "empty")
	require.True(t, ok)
	assert.NotEmpty(t, data, "an empty archive still has gzip and tar trailers")

	require.NoError(t, h.tr.Download(ctx, "empty", "out", transfer.DownloadOptions{}))
	assert.Empty(t, testutil.ReadTree(t, h.fs, "out"))
}

func TestTransfer_Upload_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid pattern", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.tr.Upload(ctx, []string{"src/[a"}, "k")
		require.Error(t, err)
		assert.Equal(t, apperrors.CodePattern, apperrors.CodeOf(err))
		assert.Empty(t, h.fake.Requests())
	})

	t.Run("put failure removes the archive", func(t *testing.T) {
		h := newHarness(t, []testutil.FakeOption{testutil.WithFakeBuckets(bucketName)})
		h.fake.FailNext(http.MethodPut, "partNumber", http.StatusInternalServerError)

		_, err := h.tr.Upload(ctx, []string{"src/"}, "k")
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeStore, apperrors.CodeOf(err))
		assert.False(t, h.exists(t, transfer.DefaultArchiveName))
		assert.Empty(t, h.fake.Keys(bucketName))
	})

	t.Run("bucket creation failure", func(t *testing.T) {
		h := newHarness(t, nil)
		h.fake.FailNext(http.MethodPut, "", http.StatusForbidden)

		_, err := h.tr.Upload(ctx, []string{"src/"}, "k")
		require.Error(t, err)
		assert.ErrorIs(t, err, s3errors.ErrBucketCreate)
		assert.False(t, h.exists(t, transfer.DefaultArchiveName))
		assert.Equal(t, 0, h.fake.CountRequests(http.MethodPost, "uploads"))
	})

	t.Run("skipping bucket check", func(t *testing.T) {
		h := newHarness(t, nil, transfer.WithEnsureBucket(false))

		_, err := h.tr.Upload(ctx, []string{"src/"}, "k")
		require.Error(t, err)
		assert.True(t, s3errors.IsBucketNotFound(err))
		assert.Equal(t, 0, h.fake.CountRequests(http.MethodHead, ""))
	})
}

func TestTransfer_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("remove remote", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.tr.Upload(ctx, []string{"src/"}, "k")
		require.NoError(t, err)

		require.NoError(t, h.tr.Download(ctx, "k", "out", transfer.DownloadOptions{RemoveRemote: true}))
		assert.Empty(t, h.fake.Keys(bucketName))
		assert.Len(t, testutil.ReadTree(t, h.fs, "out"), 2)
	})

	t.Run("missing key", func(t *testing.T) {
		h := newHarness(t, []testutil.FakeOption{testutil.WithFakeBuckets(bucketName)})

		err := h.tr.Download(ctx, "missing", "out", transfer.DownloadOptions{})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeStore, apperrors.CodeOf(err))
		assert.True(t, s3errors.IsObjectNotFound(err))
		assert.False(t, h.exists(t, transfer.DefaultDownloadName))
		assert.False(t, h.exists(t, transfer.DefaultDownloadName+".part"))
	})

	t.Run("corrupt archive is kept", func(t *testing.T) {
		h := newHarness(t, nil, transfer.WithDownloadName("fetched.tar.gz"))
		h.fake.PutObject(bucketName, "garbage", []byte("this is not a gzip stream"))

		err := h.tr.Download(ctx, "garbage", "out", transfer.DownloadOptions{RemoveRemote: true})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeFormat, apperrors.CodeOf(err))
		assert.True(t, h.exists(t, "fetched.tar.gz"))
		assert.Equal(t, []string{"garbage"}, h.fake.Keys(bucketName), "remote is not removed on failure")
	})

	t.Run("empty key", func(t *testing.T) {
		h := newHarness(t, nil)
		err := h.tr.Download(ctx, "", "out", transfer.DownloadOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Empty(t, h.fake.Requests())
	})
}

func TestTransfer_WorkDirAndNames(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	fsys := billy.NewInMemoryFS()
	testutil.WriteTree(t, fsys, "/src", map[string]string{"a.txt": "a"})
	require.NoError(t, fsys.MkdirAll("/work", 0o755))

	tr := transfer.New(store,
		archive.NewTarGzArchiverWithFS(fsys),
		scanner.NewExpander(scanner.WithFilesystem(fsys)),
		transfer.WithFilesystem(fsys),
		transfer.WithWorkDir("/work"),
		transfer.WithArchiveName("bundle.tgz"),
	)

	_, err := tr.Upload(ctx, []string{"/src/"}, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"ensure", "put k /work/bundle.tgz"}, store.calls)

	ok, err := fsys.Exists("/work/bundle.tgz")
	require.NoError(t, err)
	assert.False(t, ok)

	store.calls = nil
	store.getErr = errors.New("boom")
	err = tr.Download(ctx, "k", "/out", transfer.DownloadOptions{})
	require.Error(t, err)
	assert.Equal(t, []string{"get k /work/" + transfer.DefaultDownloadName}, store.calls)
}

// recordingStore records calls and fails on demand.
type recordingStore struct {
	calls  []string
	getErr error
}

func (r *recordingStore) EnsureBucket(context.Context) error {
	r.calls = append(r.calls, "ensure")
	return nil
}

func (r *recordingStore) Put(_ context.Context, key, path string, _ ...s3types.TransferOption) (*s3types.UploadResult, error) {
	r.calls = append(r.calls, "put "+key+" "+path)
	return &s3types.UploadResult{Key: key}, nil
}

func (r *recordingStore) Get(_ context.Context, key, path string, _ ...s3types.TransferOption) (*s3types.DownloadResult, error) {
	r.calls = append(r.calls, "get "+key+" "+path)
	if r.getErr != nil {
		return nil, r.getErr
	}
	return &s3types.DownloadResult{Key: key}, nil
}

func (r *recordingStore) Delete(_ context.Context, key string) error {
	r.calls = append(r.calls, "delete "+key)
	return nil
}
