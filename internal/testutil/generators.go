package testutil

import (
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"sort"
	"testing"

	"github.com/input-output-hk/s3-artifact-handler/fs"
)

// TestDataGenerator produces reproducible file content.
type TestDataGenerator struct {
	rand *rand.Rand
}

// NewTestDataGenerator creates a new test data generator with a seeded random source.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		//nolint:gosec // deterministic test data
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Bytes returns n pseudo-random bytes.
func (g *TestDataGenerator) Bytes(n int) []byte {
	b := make([]byte, n)
	_, _ = g.rand.Read(b)
	return b
}

// WriteTree writes files, keyed by slash path, into filesystem under root.
func WriteTree(tb testing.TB, filesystem fs.Filesystem, root string, files map[string]string) {
	tb.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := path.Join(root, name)
		if err := filesystem.MkdirAll(path.Dir(p), 0o755); err != nil {
			tb.Fatalf("mkdir %s: %v", path.Dir(p), err)
		}
		if err := filesystem.WriteFile(p, []byte(files[name]), 0o644); err != nil {
			tb.Fatalf("write %s: %v", p, err)
		}
	}
}

// ReadTree reads every regular file below root into a map keyed by slash
// path relative to root.
func ReadTree(tb testing.TB, filesystem fs.Filesystem, root string) map[string]string {
	tb.Helper()

	out := make(map[string]string)
	err := filesystem.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		data, err := filesystem.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		tb.Fatalf("read tree %s: %v", root, err)
	}
	return out
}
