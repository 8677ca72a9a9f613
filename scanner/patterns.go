package scanner

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// recursiveSuffix is appended to directory patterns so they match everything
// beneath the directory.
const recursiveSuffix = "**/*"

// PatternError represents an error with a pattern.
type PatternError struct {
	Pattern string
	Index   int
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern at index %d '%s': %v", e.Index, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// NormalizePattern rewrites a pattern ending in a path separator into a
// recursive match of the directory's contents. Other patterns are returned
// unchanged.
func NormalizePattern(pattern string) string {
	if strings.HasSuffix(pattern, "/") || strings.HasSuffix(pattern, string(os.PathSeparator)) {
		return pattern + recursiveSuffix
	}
	return pattern
}

// IsLiteral reports whether pattern contains no glob meta characters.
func IsLiteral(pattern string) bool {
	return !strings.ContainsAny(pattern, "*?[{")
}

// ValidatePatterns validates that the given patterns are syntactically correct
// after normalization.
func ValidatePatterns(patterns []string) []error {
	var errs []error

	for i, pattern := range patterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(NormalizePattern(pattern))) {
			errs = append(errs, &PatternError{
				Pattern: pattern,
				Index:   i,
				Err:     doublestar.ErrBadPattern,
			})
		}
	}

	return errs
}

// splitPattern returns the directory to walk for a meta pattern and the
// pattern rebuilt on the cleaned directory, so that it lines up with the
// cleaned paths a walk produces. Both are in slash form.
func splitPattern(pattern string) (base, full string) {
	base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
	base = path.Clean(base)
	if base == "." {
		return base, rest
	}
	return base, path.Join(base, rest)
}

// matches reports whether the walked path p satisfies the slash-form pattern.
func matches(pattern, p string) (bool, error) {
	ok, err := doublestar.Match(pattern, filepath.ToSlash(p))
	if err != nil {
		return false, fmt.Errorf("match %q: %w", p, err)
	}
	return ok, nil
}

// canDescend reports whether some path below dir could still match the
// slash-form pattern. Patterns with alternation are never pruned since a
// brace group may span separators.
func canDescend(pattern, dir string) bool {
	if strings.Contains(pattern, "{") {
		return true
	}
	segs := strings.Split(pattern, "/")
	parts := strings.Split(dir, "/")
	for i, part := range parts {
		if i >= len(segs) {
			return false
		}
		if strings.Contains(segs[i], "**") {
			return true
		}
		if segs[i] == part {
			continue
		}
		ok, err := doublestar.Match(segs[i], part)
		if err != nil || !ok {
			return false
		}
	}
	return len(parts) < len(segs)
}
