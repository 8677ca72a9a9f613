// Package fstest provides a conformance test suite for fs.Filesystem
// implementations.
//
// The suite checks the behaviour the path expander, the archive packer and
// the object store client depend on: missing parents are created on write,
// Rename replaces its target, Walk is lexical and does not follow links.
//
// Example usage:
//
//	func TestMyFilesystem(t *testing.T) {
//	    fstest.TestSuite(t, func() fs.Filesystem {
//	        return myfs.New()
//	    })
//	}
package fstest

import (
	"slices"
	"testing"

	"github.com/input-output-hk/s3-artifact-handler/fs"
)

// TestSuite runs all conformance tests against a filesystem.
// The newFS function should return a fresh, empty filesystem for each test.
func TestSuite(t *testing.T, newFS func() fs.Filesystem) {
	TestSuiteWithSkip(t, newFS, nil)
}

// TestSuiteWithSkip runs conformance tests with optional test skipping.
// The skipTests parameter is a slice of group names to skip (e.g., "Symlink").
func TestSuiteWithSkip(t *testing.T, newFS func() fs.Filesystem, skipTests []string) {
	groups := []struct {
		name string
		run  func(*testing.T, fs.Filesystem)
	}{
		{"Read", TestRead},
		{"Write", TestWrite},
		{"Manage", TestManage},
		{"Walk", TestWalk},
		{"Symlink", TestSymlink},
		{"Temp", TestTemp},
	}

	for _, g := range groups {
		t.Run(g.name, func(t *testing.T) {
			if slices.Contains(skipTests, g.name) {
				t.Skip("Skipped by provider configuration")
			}
			g.run(t, newFS())
		})
	}
}
