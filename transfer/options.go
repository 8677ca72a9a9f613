package transfer

import (
	"log/slog"

	"github.com/input-output-hk/s3-artifact-handler/fs"
)

const (
	// DefaultArchiveName is the local archive written by Upload.
	DefaultArchiveName = "export.tar.gz"

	// DefaultDownloadName is the local archive written by Download.
	DefaultDownloadName = "local_download.tar.gz"
)

// Option configures a Transfer.
type Option func(*Transfer)

// WithLogger sets the logger for pipeline events.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transfer) {
		t.logger = logger
	}
}

// WithFilesystem sets the filesystem local archives are removed from. It
// must be the filesystem the archiver and store write to.
func WithFilesystem(filesystem fs.Filesystem) Option {
	return func(t *Transfer) {
		t.fs = filesystem
	}
}

// WithWorkDir sets the directory local archives are written to.
// Default is the current directory.
func WithWorkDir(dir string) Option {
	return func(t *Transfer) {
		t.workDir = dir
	}
}

// WithArchiveName sets the file name of the archive built by Upload.
func WithArchiveName(name string) Option {
	return func(t *Transfer) {
		if name != "" {
			t.archiveName = name
		}
	}
}

// WithDownloadName sets the file name of the archive fetched by Download.
func WithDownloadName(name string) Option {
	return func(t *Transfer) {
		if name != "" {
			t.downloadName = name
		}
	}
}

// WithEnsureBucket controls whether Upload verifies the bucket first.
// Default is true.
func WithEnsureBucket(ensure bool) Option {
	return func(t *Transfer) {
		t.ensureBucket = ensure
	}
}

// WithKeyGenerator sets the function that names objects uploaded without
// an explicit key. Default is a random UUID.
func WithKeyGenerator(gen func() string) Option {
	return func(t *Transfer) {
		if gen != nil {
			t.newKey = gen
		}
	}
}
