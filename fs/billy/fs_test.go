package billy

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	parentfs "github.com/input-output-hk/s3-artifact-handler/fs"
	"github.com/input-output-hk/s3-artifact-handler/fs/fstest"
)

func testMkdirAllStat(t *testing.T, fsys parentfs.Filesystem, root string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Join(root, "a/b/c"), 0o755))

	info, err := fsys.Stat(filepath.Join(root, "a/b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "expected directory, got file: %v", info.Name())
}

func testWriteReadRemove(t *testing.T, fsys parentfs.Filesystem, root string) {
	t.Helper()
	p := filepath.Join(root, "file.txt")

	require.NoError(t, fsys.WriteFile(p, []byte("hello"), 0o644))

	b, err := fsys.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	ok, err := fsys.Exists(p)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, fsys.Remove(p))

	ok, err = fsys.Exists(p)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = fsys.Stat(p)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func testTempFileRename(t *testing.T, fsys parentfs.Filesystem, root string) {
	t.Helper()
	dest := filepath.Join(root, "export.tar.gz")
	require.NoError(t, fsys.WriteFile(dest, []byte("old"), 0o644))

	tmp, err := fsys.TempFile(root, ".export-")
	require.NoError(t, err)
	_, err = tmp.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	require.NoError(t, fsys.Rename(tmp.Name(), dest))

	b, err := fsys.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))

	ok, err := fsys.Exists(tmp.Name())
	require.NoError(t, err)
	assert.False(t, ok, "temp file should be gone after rename")
}

func testOpenSeekStat(t *testing.T, fsys parentfs.Filesystem, root string) {
	t.Helper()
	p := filepath.Join(root, "open.txt")
	require.NoError(t, fsys.WriteFile(p, []byte("abcdef"), 0o644))

	f, err := fsys.OpenFile(p, os.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()

	pos, err := f.Seek(3, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)

	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "def", string(rest))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.Size())
}

func testSymlinkLstat(t *testing.T, fsys parentfs.Filesystem, root string) {
	t.Helper()
	target := filepath.Join(root, "target.txt")
	link := filepath.Join(root, "link.txt")
	require.NoError(t, fsys.WriteFile(target, []byte("t"), 0o644))
	require.NoError(t, fsys.Symlink("target.txt", link))

	linfo, err := fsys.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, linfo.Mode()&fs.ModeSymlink)

	info, err := fsys.Stat(link)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())

	got, err := fsys.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "target.txt", got)
}

func testTempDirAndWalk(t *testing.T, fsys parentfs.Filesystem, root string) {
	t.Helper()
	td, err := fsys.TempDir(root, "pref-")
	require.NoError(t, err)
	require.NotEmpty(t, td)

	require.NoError(t, fsys.MkdirAll(filepath.Join(td, "x/y"), 0o755))
	require.NoError(t, fsys.WriteFile(filepath.Join(td, "x/y/z.txt"), []byte("z"), 0o644))
	require.NoError(t, fsys.WriteFile(filepath.Join(td, "x/a.txt"), []byte("a"), 0o644))

	var seen []string
	err = fsys.Walk(td, func(path string, _ os.FileInfo, err error) error {
		require.NoError(t, err)
		rel, relErr := filepath.Rel(td, path)
		require.NoError(t, relErr)
		seen = append(seen, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{".", "x", "x/a.txt", "x/y", "x/y/z.txt"}, seen)
}

// runSuite runs a battery of consistency tests against a Filesystem impl.
func runSuite(t *testing.T, fsys parentfs.Filesystem, root string) {
	t.Helper()
	t.Run("mkdirall and stat", func(t *testing.T) { testMkdirAllStat(t, fsys, root) })
	t.Run("write read remove", func(t *testing.T) { testWriteReadRemove(t, fsys, root) })
	t.Run("tempfile and rename", func(t *testing.T) { testTempFileRename(t, fsys, root) })
	t.Run("open seek stat", func(t *testing.T) { testOpenSeekStat(t, fsys, root) })
	t.Run("symlink and lstat", func(t *testing.T) { testSymlinkLstat(t, fsys, root) })
	t.Run("tempdir and walk", func(t *testing.T) { testTempDirAndWalk(t, fsys, root) })
}

func TestInMemoryFS_Suite(t *testing.T) {
	runSuite(t, NewInMemoryFS(), "/")
}

func TestOSFS_Suite(t *testing.T) {
	root := t.TempDir()
	runSuite(t, NewOSFS(root), "/")
}

func TestBaseOSFS_Suite(t *testing.T) {
	root := t.TempDir()
	runSuite(t, NewBaseOSFS(), root)
}

func TestInMemoryFS_Conformance(t *testing.T) {
	fstest.TestSuite(t, func() parentfs.Filesystem {
		return NewInMemoryFS()
	})
}

func TestOSFS_Conformance(t *testing.T) {
	fstest.TestSuite(t, func() parentfs.Filesystem {
		return NewOSFS(t.TempDir())
	})
}

func TestBaseOSFS_Chmod(t *testing.T) {
	root := t.TempDir()
	fsys := NewBaseOSFS()
	p := filepath.Join(root, "run.sh")
	require.NoError(t, fsys.WriteFile(p, []byte("#!/bin/sh\n"), 0o644))

	require.NoError(t, fsys.Chmod(p, 0o755))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}
