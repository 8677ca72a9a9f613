package fstest

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	parentfs "github.com/input-output-hk/s3-artifact-handler/fs"
)

func mustWrite(t *testing.T, filesystem parentfs.Filesystem, name, data string) {
	t.Helper()
	if err := filesystem.WriteFile(name, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile(%q): got error %v, want nil", name, err)
	}
}

// TestRead tests Open, ReadAt, Seek, Stat and ReadFile on an existing file.
func TestRead(t *testing.T, filesystem parentfs.Filesystem) {
	want := []byte("0123456789")
	mustWrite(t, filesystem, "read.txt", string(want))

	data, err := filesystem.ReadFile("read.txt")
	if err != nil {
		t.Fatalf("ReadFile(%q): got error %v, want nil", "read.txt", err)
	}
	if !bytes.Equal(data, want) {
		t.Errorf("ReadFile(%q): got %q, want %q", "read.txt", data, want)
	}

	f, err := filesystem.Open("read.txt")
	if err != nil {
		t.Fatalf("Open(%q): got error %v, want nil", "read.txt", err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 4)
	if n, err := f.ReadAt(buf, 3); err != nil || n != 4 || string(buf) != "3456" {
		t.Errorf("ReadAt(4, 3): got (%d, %q, %v), want (4, %q, nil)", n, buf[:n], err, "3456")
	}

	if off, err := f.Seek(8, io.SeekStart); err != nil || off != 8 {
		t.Errorf("Seek(8): got (%d, %v), want (8, nil)", off, err)
	}
	rest, err := io.ReadAll(f)
	if err != nil || string(rest) != "89" {
		t.Errorf("ReadAll after Seek: got (%q, %v), want (%q, nil)", rest, err, "89")
	}

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat(): got error %v, want nil", err)
	}
	if info.Size() != int64(len(want)) || info.IsDir() {
		t.Errorf("Stat(): got size %d dir %v, want size %d file", info.Size(), info.IsDir(), len(want))
	}

	if _, err := filesystem.Open("missing.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open(%q): got error %v, want fs.ErrNotExist", "missing.txt", err)
	}
	ok, err := filesystem.Exists("missing.txt")
	if err != nil || ok {
		t.Errorf("Exists(%q): got (%v, %v), want (false, nil)", "missing.txt", ok, err)
	}
}

// TestWrite tests Create, OpenFile and WriteFile, including parent creation.
func TestWrite(t *testing.T, filesystem parentfs.Filesystem) {
	name := filepath.Join("deep", "nested", "create.txt")
	f, err := filesystem.Create(name)
	if err != nil {
		t.Fatalf("Create(%q): got error %v, want nil", name, err)
	}
	if _, err := f.Write([]byte("created")); err != nil {
		_ = f.Close()
		t.Fatalf("Write(): got error %v, want nil", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close(): got error %v, want nil", err)
	}
	if data, err := filesystem.ReadFile(name); err != nil || string(data) != "created" {
		t.Errorf("ReadFile(%q): got (%q, %v), want (%q, nil)", name, data, err, "created")
	}

	mustWrite(t, filesystem, "trunc.txt", "a much longer payload")
	mustWrite(t, filesystem, "trunc.txt", "short")
	if data, _ := filesystem.ReadFile("trunc.txt"); string(data) != "short" {
		t.Errorf("WriteFile did not truncate: got %q", data)
	}

	af, err := filesystem.OpenFile("trunc.txt", os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("OpenFile(O_APPEND): got error %v, want nil", err)
	}
	if _, err := af.Write([]byte("+tail")); err != nil {
		t.Errorf("Write(append): got error %v, want nil", err)
	}
	_ = af.Close()
	if data, _ := filesystem.ReadFile("trunc.txt"); string(data) != "short+tail" {
		t.Errorf("append: got %q, want %q", data, "short+tail")
	}

	if err := filesystem.MkdirAll(filepath.Join("x", "y", "z"), 0o755); err != nil {
		t.Fatalf("MkdirAll: got error %v, want nil", err)
	}
	if err := filesystem.MkdirAll(filepath.Join("x", "y"), 0o755); err != nil {
		t.Errorf("MkdirAll on existing dir: got error %v, want nil", err)
	}
	info, err := filesystem.Stat(filepath.Join("x", "y", "z"))
	if err != nil || !info.IsDir() {
		t.Errorf("Stat(x/y/z): got (%v, %v), want directory", info, err)
	}
}

// TestManage tests Rename, Remove, ReadDir and Chmod.
func TestManage(t *testing.T, filesystem parentfs.Filesystem) {
	mustWrite(t, filesystem, "old.txt", "new content")
	mustWrite(t, filesystem, "target.txt", "stale content")

	if err := filesystem.Rename("old.txt", "target.txt"); err != nil {
		t.Fatalf("Rename onto existing file: got error %v, want nil", err)
	}
	if data, _ := filesystem.ReadFile("target.txt"); string(data) != "new content" {
		t.Errorf("Rename did not replace target: got %q", data)
	}
	if ok, _ := filesystem.Exists("old.txt"); ok {
		t.Errorf("Rename left source behind")
	}

	if err := filesystem.Chmod("target.txt", 0o600); err != nil {
		t.Errorf("Chmod: got error %v, want nil", err)
	}

	mustWrite(t, filesystem, filepath.Join("dir", "b"), "b")
	mustWrite(t, filesystem, filepath.Join("dir", "a"), "a")
	entries, err := filesystem.ReadDir("dir")
	if err != nil {
		t.Fatalf("ReadDir: got error %v, want nil", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ReadDir: got %d entries, want 2", len(entries))
	}

	if err := filesystem.Remove("target.txt"); err != nil {
		t.Errorf("Remove: got error %v, want nil", err)
	}
	if err := filesystem.Remove("target.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Remove twice: got error %v, want fs.ErrNotExist", err)
	}
}

// TestWalk tests that Walk visits entries in lexical order.
func TestWalk(t *testing.T, filesystem parentfs.Filesystem) {
	for _, name := range []string{"root/b.txt", "root/a/z.txt", "root/a/y.txt", "root/c/x.txt"} {
		mustWrite(t, filesystem, filepath.FromSlash(name), name)
	}

	var got []string
	err := filesystem.Walk("root", func(p string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		got = append(got, filepath.ToSlash(p))
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: got error %v, want nil", err)
	}

	want := []string{"root", "root/a", "root/a/y.txt", "root/a/z.txt", "root/b.txt", "root/c", "root/c/x.txt"}
	if len(got) != len(want) {
		t.Fatalf("Walk: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Walk[%d]: got %q, want %q", i, got[i], want[i])
		}
	}

	errStop := errors.New("stop")
	err = filesystem.Walk("root", func(p string, _ os.FileInfo, _ error) error {
		if filepath.ToSlash(p) == "root/b.txt" {
			return errStop
		}
		return nil
	})
	if !errors.Is(err, errStop) {
		t.Errorf("Walk: got error %v, want callback error", err)
	}
}

// TestSymlink tests Symlink, Readlink and Lstat.
func TestSymlink(t *testing.T, filesystem parentfs.Filesystem) {
	mustWrite(t, filesystem, "target.txt", "data")

	if err := filesystem.Symlink("target.txt", "link"); err != nil {
		t.Fatalf("Symlink: got error %v, want nil", err)
	}

	target, err := filesystem.Readlink("link")
	if err != nil || target != "target.txt" {
		t.Errorf("Readlink: got (%q, %v), want (%q, nil)", target, err, "target.txt")
	}

	info, err := filesystem.Lstat("link")
	if err != nil {
		t.Fatalf("Lstat: got error %v, want nil", err)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		t.Errorf("Lstat: got mode %v, want symlink", info.Mode())
	}

	info, err = filesystem.Stat("link")
	if err != nil || info.Mode()&fs.ModeSymlink != 0 {
		t.Errorf("Stat follows links: got (%v, %v)", info, err)
	}
}

// TestTemp tests TempFile and TempDir.
func TestTemp(t *testing.T, filesystem parentfs.Filesystem) {
	if err := filesystem.MkdirAll("tmp", 0o755); err != nil {
		t.Fatalf("MkdirAll: got error %v, want nil", err)
	}

	f1, err := filesystem.TempFile("tmp", "part-")
	if err != nil {
		t.Fatalf("TempFile: got error %v, want nil", err)
	}
	f2, err := filesystem.TempFile("tmp", "part-")
	if err != nil {
		t.Fatalf("TempFile: got error %v, want nil", err)
	}
	_ = f1.Close()
	_ = f2.Close()
	if f1.Name() == f2.Name() {
		t.Errorf("TempFile returned the same name twice: %q", f1.Name())
	}

	dir, err := filesystem.TempDir("tmp", "work-")
	if err != nil {
		t.Fatalf("TempDir: got error %v, want nil", err)
	}
	info, err := filesystem.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("Stat(%q): got (%v, %v), want directory", dir, info, err)
	}
}
