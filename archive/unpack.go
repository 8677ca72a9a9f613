package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/klauspost/compress/gzip"

	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
	"github.com/input-output-hk/s3-artifact-handler/fs"
)

const dirPerm = 0o755

// Unpack extracts the tar.gz archive at src beneath destDir, creating destDir
// if needed.
//
// A leading "/" is stripped from member names. Member paths are resolved
// through symlinks already on disk without ever leaving destDir. Members
// whose name or link target would escape destDir fail with a FORMAT_ERROR, as
// do corrupt or truncated streams. Filesystem failures are IO_ERROR. Hard links, devices
// and other special members are skipped.
func (a *TarGzArchiver) Unpack(ctx context.Context, src, destDir string) (*ExtractResult, error) {
	f, err := a.fs.Open(src)
	if err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeIO, "unpack", src)
	}
	defer f.Close()

	if err := a.fs.MkdirAll(destDir, dirPerm); err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeIO, "unpack", destDir)
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeFormat, "unpack", src)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	res := &ExtractResult{}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, apperrors.WrapPath(err, apperrors.CodeFormat, "unpack", src)
		}

		if err := a.extractEntry(tr, hdr, destDir, res); err != nil {
			return res, err
		}
	}

	a.logger.Debug("unpacked archive", "path", src, "dest", destDir,
		"files", res.Files, "dirs", res.Dirs, "size", res.Bytes)
	return res, nil
}

func (a *TarGzArchiver) extractEntry(tr *tar.Reader, hdr *tar.Header, destDir string, res *ExtractResult) error {
	name, err := memberPath(hdr.Name)
	if err != nil {
		return apperrors.WrapPath(err, apperrors.CodeFormat, "unpack", hdr.Name)
	}
	if name == "" {
		return nil
	}
	perm := hdr.FileInfo().Mode().Perm()

	switch hdr.Typeflag {
	case tar.TypeDir:
		target, err := securejoin.SecureJoinVFS(destDir, filepath.FromSlash(name), secureFS{a.fs})
		if err != nil {
			return apperrors.WrapPath(err, apperrors.CodeIO, "unpack", hdr.Name)
		}
		if err := a.fs.MkdirAll(target, dirPerm); err != nil {
			return apperrors.WrapPath(err, apperrors.CodeIO, "unpack", target)
		}
		res.Dirs++
		return nil

	case tar.TypeReg:
		target, _, err := a.resolveMember(destDir, name)
		if err != nil {
			return apperrors.WrapPath(err, apperrors.CodeIO, "unpack", hdr.Name)
		}
		if err := a.removeSymlink(target); err != nil {
			return err
		}
		n, err := a.writeFile(tr, target, perm)
		if err != nil {
			return err
		}
		res.Files++
		res.Bytes += n
		return nil

	case tar.TypeSymlink:
		target, rel, err := a.resolveMember(destDir, name)
		if err != nil {
			return apperrors.WrapPath(err, apperrors.CodeIO, "unpack", hdr.Name)
		}
		// The link text is checked against where the link really lands.
		if err := linkStaysInside(rel, hdr.Linkname); err != nil {
			return apperrors.WrapPath(err, apperrors.CodeFormat, "unpack", hdr.Name)
		}
		if err := a.fs.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
			return apperrors.WrapPath(err, apperrors.CodeIO, "unpack", target)
		}
		if _, err := a.fs.Lstat(target); err == nil {
			if err := a.fs.Remove(target); err != nil {
				return apperrors.WrapPath(err, apperrors.CodeIO, "unpack", target)
			}
		}
		if err := a.fs.Symlink(hdr.Linkname, target); err != nil {
			return apperrors.WrapPath(err, apperrors.CodeIO, "unpack", target)
		}
		res.Files++
		return nil

	default:
		a.logger.Warn("skipping unsupported member", "path", hdr.Name, "type", string(hdr.Typeflag))
		return nil
	}
}

// resolveMember maps name onto disk under destDir. Symlinks in the parent
// path are followed but clamped to destDir; the final element is left alone.
// rel is the resolved location relative to destDir in slash form.
func (a *TarGzArchiver) resolveMember(destDir, name string) (target, rel string, err error) {
	parent, err := securejoin.SecureJoinVFS(destDir, filepath.FromSlash(path.Dir(name)), secureFS{a.fs})
	if err != nil {
		return "", "", err
	}
	target = filepath.Join(parent, path.Base(name))
	rel, err = filepath.Rel(filepath.Clean(destDir), target)
	if err != nil {
		return "", "", err
	}
	return target, filepath.ToSlash(rel), nil
}

// removeSymlink deletes target if it is a symlink so a regular member
// replaces the link instead of writing through it.
func (a *TarGzArchiver) removeSymlink(target string) error {
	info, err := a.fs.Lstat(target)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	if err := a.fs.Remove(target); err != nil {
		return apperrors.WrapPath(err, apperrors.CodeIO, "unpack", target)
	}
	return nil
}

// writeFile copies the current member into target. Read failures come from
// the archive stream and are FORMAT_ERROR; write failures are IO_ERROR.
func (a *TarGzArchiver) writeFile(tr *tar.Reader, target string, perm os.FileMode) (int64, error) {
	if err := a.fs.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return 0, apperrors.WrapPath(err, apperrors.CodeIO, "unpack", target)
	}

	out, err := a.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, apperrors.WrapPath(err, apperrors.CodeIO, "unpack", target)
	}

	dst := &errWriter{w: out}
	n, copyErr := io.Copy(dst, tr)
	closeErr := out.Close()

	switch {
	case copyErr != nil && dst.err != nil:
		return n, apperrors.WrapPath(copyErr, apperrors.CodeIO, "unpack", target)
	case copyErr != nil:
		return n, apperrors.WrapPath(copyErr, apperrors.CodeFormat, "unpack", target)
	case closeErr != nil:
		return n, apperrors.WrapPath(closeErr, apperrors.CodeIO, "unpack", target)
	}

	if err := a.fs.Chmod(target, perm); err != nil {
		return n, apperrors.WrapPath(err, apperrors.CodeIO, "unpack", target)
	}
	return n, nil
}

// memberPath turns a member name into a clean relative slash path. It
// returns "" for names that refer to the extraction root itself.
func memberPath(name string) (string, error) {
	rel := strings.TrimLeft(name, "/")
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return "", errors.New("member escapes destination")
		}
	}
	rel = path.Clean(rel)
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

// linkStaysInside rejects symlink targets that resolve outside the
// extraction root.
func linkStaysInside(name, linkname string) error {
	if linkname == "" || path.IsAbs(linkname) {
		return fmt.Errorf("symlink target %q is not relative", linkname)
	}
	resolved := path.Join(path.Dir(name), linkname)
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return fmt.Errorf("symlink target %q escapes destination", linkname)
	}
	return nil
}

// secureFS lets securejoin walk a Filesystem. Not-exist errors are reported
// bare since the wrappers in fs/billy add context securejoin does not unwrap.
type secureFS struct {
	fs fs.Filesystem
}

func (s secureFS) Lstat(name string) (os.FileInfo, error) {
	info, err := s.fs.Lstat(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &os.PathError{Op: "lstat", Path: name, Err: os.ErrNotExist}
	}
	return info, err
}

func (s secureFS) Readlink(name string) (string, error) {
	return s.fs.Readlink(name)
}

// errWriter remembers the first error returned by w.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	if err != nil && e.err == nil {
		e.err = err
	}
	return n, err
}
