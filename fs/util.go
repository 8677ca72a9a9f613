package fs

import (
	"fmt"
	"path/filepath"
)

// GetAbs returns the absolute form of path, resolved against the process
// working directory.
func GetAbs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("fs: abs %q: %w", path, err)
	}
	return abs, nil
}
