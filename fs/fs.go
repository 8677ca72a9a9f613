// Package fs defines the filesystem abstraction used by the path expander,
// the archive packer and the object store client. Production code runs on the
// native filesystem; tests substitute an in-memory implementation.
package fs

import (
	"io/fs"
	"path/filepath"
)

// Filesystem is the set of filesystem operations the artifact pipeline needs.
// Paths are interpreted the way the implementation's root dictates; the
// native implementation accepts both absolute and working-directory relative
// paths.
type Filesystem interface {
	// Chmod changes the mode of the named file. Implementations that cannot
	// represent modes return nil.
	Chmod(name string, mode fs.FileMode) error
	Create(name string) (File, error)
	Exists(path string) (bool, error)
	// Lstat is like Stat but does not follow a trailing symbolic link.
	Lstat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm fs.FileMode) error
	Open(name string) (File, error)
	OpenFile(name string, flag int, perm fs.FileMode) (File, error)
	ReadDir(dirname string) ([]fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	Readlink(name string) (string, error)
	Remove(name string) error
	// Rename moves oldpath to newpath, replacing newpath if it exists.
	Rename(oldpath, newpath string) error
	Stat(name string) (fs.FileInfo, error)
	Symlink(target, link string) error
	TempDir(dir, prefix string) (string, error)
	// TempFile creates a new file in dir whose name begins with prefix.
	TempFile(dir, prefix string) (File, error)
	// Walk visits root and everything beneath it in lexical order without
	// following symbolic links.
	Walk(root string, walkFn filepath.WalkFunc) error
	WriteFile(filename string, data []byte, perm fs.FileMode) error
}
