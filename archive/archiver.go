// Package archive packs file lists into gzip-compressed tar archives and
// extracts them again.
//
// Member names are the path strings handed to Pack in slash form. Pack is
// all-or-nothing: the archive appears at its destination only once every
// entry has been written and the gzip trailer flushed. Unpack is not atomic;
// members extracted before a failure stay on disk.
package archive

import (
	"io"
	"log/slog"

	"github.com/klauspost/compress/gzip"

	"github.com/input-output-hk/s3-artifact-handler/fs"
	"github.com/input-output-hk/s3-artifact-handler/fs/billy"
)

// ProgressFunc is called after each entry is written with the entry's path
// and the number of content bytes written for it.
type ProgressFunc func(entry string, written int64)

// Result describes an archive written by Pack.
type Result struct {
	// Path is the archive location.
	Path string
	// Size is the compressed size in bytes.
	Size int64
	// Entries is the number of members written.
	Entries int
	// Digest is the hex BLAKE3 digest of the compressed bytes.
	Digest string
}

// ExtractResult describes what Unpack wrote.
type ExtractResult struct {
	Files int
	Dirs  int
	Bytes int64
}

// TarGzArchiver creates and extracts tar.gz archives on a filesystem.
type TarGzArchiver struct {
	fs       fs.Filesystem
	logger   *slog.Logger
	level    int
	progress ProgressFunc
}

// Option configures a TarGzArchiver.
type Option func(*TarGzArchiver)

// WithFilesystem sets the filesystem archives are read from and written to.
func WithFilesystem(filesystem fs.Filesystem) Option {
	return func(a *TarGzArchiver) {
		a.fs = filesystem
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *TarGzArchiver) {
		a.logger = logger
	}
}

// WithCompressionLevel sets the gzip level. Values outside the range
// accepted by gzip.NewWriterLevel make Pack fail.
func WithCompressionLevel(level int) Option {
	return func(a *TarGzArchiver) {
		a.level = level
	}
}

// WithProgress registers a callback invoked after each packed entry.
func WithProgress(fn ProgressFunc) Option {
	return func(a *TarGzArchiver) {
		a.progress = fn
	}
}

// NewTarGzArchiver creates an archiver on the native filesystem at the
// default compression level.
func NewTarGzArchiver(opts ...Option) *TarGzArchiver {
	a := &TarGzArchiver{
		fs:     billy.NewBaseOSFS(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		level:  gzip.DefaultCompression,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewTarGzArchiverWithFS creates an archiver on the given filesystem.
func NewTarGzArchiverWithFS(filesystem fs.Filesystem) *TarGzArchiver {
	return NewTarGzArchiver(WithFilesystem(filesystem))
}

// countingWriter counts bytes passing through to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
