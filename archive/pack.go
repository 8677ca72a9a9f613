package archive

import (
	"archive/tar"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/blake3"

	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
	parentfs "github.com/input-output-hk/s3-artifact-handler/fs"
)

// Pack writes entries into a tar.gz archive at dest, replacing any archive
// already there.
//
// Entries are stat'ed following symbolic links. Regular files are stored
// with their content, permission bits and modification time; directories
// and special files are skipped. A missing or unreadable entry aborts the
// whole operation with an IO_ERROR and leaves dest untouched.
func (a *TarGzArchiver) Pack(ctx context.Context, entries []string, dest string) (*Result, error) {
	tmp, err := a.fs.TempFile(filepath.Dir(dest), "."+filepath.Base(dest)+"-")
	if err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeIO, "pack", dest)
	}
	tmpName := tmp.Name()

	committed := false
	closed := false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		if !committed {
			_ = a.fs.Remove(tmpName)
		}
	}()

	hasher := blake3.New()
	counter := &countingWriter{w: io.MultiWriter(tmp, hasher)}

	gz, err := gzip.NewWriterLevel(counter, a.level)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "pack")
	}
	tw := tar.NewWriter(gz)

	written := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ok, err := a.writeEntry(tw, entry)
		if err != nil {
			return nil, err
		}
		if ok {
			written++
		}
	}

	if err := tw.Close(); err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeIO, "pack", dest)
	}
	if err := gz.Close(); err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeIO, "pack", dest)
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeIO, "pack", dest)
	}
	if err := a.fs.Rename(tmpName, dest); err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeIO, "pack", dest)
	}
	committed = true

	res := &Result{
		Path:    dest,
		Size:    counter.n,
		Entries: written,
		Digest:  hex.EncodeToString(hasher.Sum(nil)),
	}
	a.logger.Debug("packed archive", "path", dest, "entries", res.Entries, "size", res.Size, "digest", res.Digest)
	return res, nil
}

// writeEntry appends one path to tw. It reports false for skipped entries.
func (a *TarGzArchiver) writeEntry(tw *tar.Writer, entry string) (bool, error) {
	info, err := a.fs.Stat(entry)
	if err != nil {
		return false, apperrors.WrapPath(err, apperrors.CodeIO, "pack", entry)
	}

	switch {
	case info.IsDir():
		a.logger.Debug("skipping directory", "path", entry)
		return false, nil
	case !info.Mode().IsRegular():
		a.logger.Warn("skipping special file", "path", entry, "mode", info.Mode().String())
		return false, nil
	}

	f, err := a.fs.Open(entry)
	if err != nil {
		return false, apperrors.WrapPath(err, apperrors.CodeIO, "pack", entry)
	}
	defer f.Close()

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     filepath.ToSlash(entry),
		Size:     info.Size(),
		Mode:     int64(info.Mode().Perm()),
		ModTime:  info.ModTime(),
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return false, apperrors.WrapPath(err, apperrors.CodeIO, "pack", entry)
	}

	n, err := copyEntry(tw, f)
	if err != nil {
		return false, apperrors.WrapPath(err, apperrors.CodeIO, "pack", entry)
	}
	if n != info.Size() {
		return false, apperrors.WrapPath(
			fmt.Errorf("size changed while packing: stat %d, read %d", info.Size(), n),
			apperrors.CodeIO, "pack", entry)
	}

	if a.progress != nil {
		a.progress(entry, n)
	}
	return true, nil
}

func copyEntry(tw *tar.Writer, f parentfs.File) (int64, error) {
	n, err := io.Copy(tw, f)
	if err != nil {
		return n, fmt.Errorf("copy: %w", err)
	}
	return n, nil
}
