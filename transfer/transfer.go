package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/input-output-hk/s3-artifact-handler/archive"
	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
	"github.com/input-output-hk/s3-artifact-handler/fs"
	"github.com/input-output-hk/s3-artifact-handler/fs/billy"
)

// Store is the object store used by a Transfer. *s3.Client implements it.
type Store interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key, localPath string, opts ...s3types.TransferOption) (*s3types.UploadResult, error)
	Get(ctx context.Context, key, localPath string, opts ...s3types.TransferOption) (*s3types.DownloadResult, error)
	Delete(ctx context.Context, key string) error
}

// Archiver packs files into an archive and extracts it again.
// *archive.TarGzArchiver implements it.
type Archiver interface {
	Pack(ctx context.Context, entries []string, dest string) (*archive.Result, error)
	Unpack(ctx context.Context, src, destDir string) (*archive.ExtractResult, error)
}

// Expander resolves path patterns. *scanner.Expander implements it.
type Expander interface {
	Expand(ctx context.Context, patterns []string) ([]string, error)
}

// DownloadOptions controls a single Download.
type DownloadOptions struct {
	// RemoveRemote deletes the object after a successful extraction.
	RemoveRemote bool
}

// Transfer moves sets of files to and from an object store as archives.
// It is intended for sequential use.
type Transfer struct {
	store    Store
	archiver Archiver
	expander Expander

	fs           fs.Filesystem
	logger       *slog.Logger
	workDir      string
	archiveName  string
	downloadName string
	ensureBucket bool
	newKey       func() string
}

// New creates a Transfer over the given components.
func New(store Store, archiver Archiver, expander Expander, opts ...Option) *Transfer {
	t := &Transfer{
		store:        store,
		archiver:     archiver,
		expander:     expander,
		fs:           billy.NewBaseOSFS(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		workDir:      ".",
		archiveName:  DefaultArchiveName,
		downloadName: DefaultDownloadName,
		ensureBucket: true,
		newKey:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Upload packs the files matched by paths into one archive and stores it
// under objectKey, or under a generated key when objectKey is empty. It
// returns the key used. Patterns matching nothing produce an empty archive.
// The local archive is removed whether or not the upload succeeds.
func (t *Transfer) Upload(ctx context.Context, paths []string, objectKey string) (string, error) {
	files, err := t.expander.Expand(ctx, paths)
	if err != nil {
		return "", fmt.Errorf("expand paths: %w", err)
	}
	t.logger.Debug("paths expanded", "patterns", len(paths), "files", len(files))

	archivePath := filepath.Join(t.workDir, t.archiveName)
	packed, err := t.archiver.Pack(ctx, files, archivePath)
	if err != nil {
		return "", fmt.Errorf("pack archive: %w", err)
	}
	defer t.removeLocal(archivePath)

	t.logger.Info("archive packed",
		"path", archivePath, "entries", packed.Entries, "size", packed.Size, "digest", packed.Digest)

	if t.ensureBucket {
		if err := t.store.EnsureBucket(ctx); err != nil {
			return "", fmt.Errorf("ensure bucket: %w", err)
		}
	}

	key := objectKey
	if key == "" {
		key = t.newKey()
	}

	if _, err := t.store.Put(ctx, key, archivePath); err != nil {
		return "", fmt.Errorf("upload archive: %w", err)
	}

	t.logger.Info("archive uploaded", "key", key, "size", packed.Size)
	return key, nil
}

// Download fetches objectKey and extracts it into extractTo. The local
// archive is removed after a successful extraction and kept when
// extraction fails.
func (t *Transfer) Download(ctx context.Context, objectKey, extractTo string, opts DownloadOptions) error {
	if objectKey == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "download", "object key cannot be empty")
	}
	if extractTo == "" {
		extractTo = "."
	}

	archivePath := filepath.Join(t.workDir, t.downloadName)
	if _, err := t.store.Get(ctx, objectKey, archivePath); err != nil {
		return fmt.Errorf("download archive: %w", err)
	}

	extracted, err := t.archiver.Unpack(ctx, archivePath, extractTo)
	if err != nil {
		t.logger.Warn("extraction failed, keeping downloaded archive", "path", archivePath)
		return fmt.Errorf("unpack archive: %w", err)
	}
	t.removeLocal(archivePath)

	t.logger.Info("archive extracted",
		"key", objectKey, "path", extractTo, "files", extracted.Files, "size", extracted.Bytes)

	if opts.RemoveRemote {
		if err := t.store.Delete(ctx, objectKey); err != nil {
			return fmt.Errorf("remove remote archive: %w", err)
		}
		t.logger.Info("remote archive removed", "key", objectKey)
	}
	return nil
}

func (t *Transfer) removeLocal(path string) {
	if err := t.fs.Remove(path); err != nil {
		t.logger.Warn("failed to remove local archive", "path", path, "error", err)
	}
}
