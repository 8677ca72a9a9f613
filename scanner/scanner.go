// Package scanner resolves user-supplied path patterns into a concrete list
// of filesystem paths for packing.
//
// Patterns use doublestar glob syntax (`*`, `?`, `[...]`, `{a,b}` and `**`).
// A pattern that ends in a path separator selects everything beneath that
// directory. Results are returned per pattern in lexical order with
// duplicates removed, the first occurrence winning.
package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
	"github.com/input-output-hk/s3-artifact-handler/fs"
	"github.com/input-output-hk/s3-artifact-handler/fs/billy"
)

// Expander expands path patterns against a filesystem.
type Expander struct {
	filesystem fs.Filesystem
	logger     *slog.Logger
}

// Option configures an Expander.
type Option func(*Expander)

// WithFilesystem sets the filesystem patterns are matched against.
func WithFilesystem(filesystem fs.Filesystem) Option {
	return func(e *Expander) {
		e.filesystem = filesystem
	}
}

// WithLogger sets the logger used for skipped patterns.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) {
		e.logger = logger
	}
}

// NewExpander creates an Expander over the native filesystem unless
// overridden by options.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		filesystem: billy.NewBaseOSFS(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand resolves patterns into a deduplicated list of existing paths.
// All patterns are validated before any filesystem access.
func (e *Expander) Expand(ctx context.Context, patterns []string) ([]string, error) {
	if errs := ValidatePatterns(patterns); len(errs) > 0 {
		var pe *PatternError
		errors.As(errs[0], &pe)
		return nil, apperrors.WrapPath(errs[0], apperrors.CodePattern, "expand", pe.Pattern)
	}

	seen := make(map[string]struct{})
	var out []string

	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := e.expandOne(ctx, NormalizePattern(pattern))
		if err != nil {
			return nil, err
		}

		added := 0
		for _, p := range found {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
			added++
		}
		e.logger.Debug("expanded pattern", "pattern", pattern, "matches", len(found), "added", added)
	}

	return out, nil
}

func (e *Expander) expandOne(ctx context.Context, pattern string) ([]string, error) {
	if IsLiteral(pattern) {
		ok, err := e.filesystem.Exists(pattern)
		if err != nil {
			return nil, apperrors.WrapPath(err, apperrors.CodeIO, "expand", pattern)
		}
		if !ok {
			e.logger.Debug("skipping missing path", "path", pattern)
			return nil, nil
		}
		if info, err := e.filesystem.Stat(pattern); err == nil && info.IsDir() {
			e.logger.Warn("directory given without trailing separator, its contents are not included",
				"path", pattern, "hint", pattern+"/")
		}
		return []string{pattern}, nil
	}

	base, full := splitPattern(pattern)
	root := filepath.FromSlash(base)

	ok, err := e.filesystem.Exists(root)
	if err != nil {
		return nil, apperrors.WrapPath(err, apperrors.CodeIO, "expand", root)
	}
	if !ok {
		e.logger.Debug("pattern base does not exist", "pattern", pattern, "path", root)
		return nil, nil
	}

	var found []string
	err = e.filesystem.Walk(root, func(p string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		matched := false
		if p != "." {
			ok, err := matches(full, p)
			if err != nil {
				return apperrors.WrapPath(err, apperrors.CodePattern, "expand", pattern)
			}
			matched = ok
		}
		descend := p == root || canDescend(full, filepath.ToSlash(p))
		isDir := info != nil && info.IsDir()

		if walkErr != nil {
			// Entries the pattern never looks inside may be unreadable.
			if descend || (!isDir && matched) {
				return apperrors.WrapPath(walkErr, apperrors.CodeIO, "expand", p)
			}
			e.logger.Debug("skipping unreadable path", "path", p, "error", walkErr)
		}

		if matched {
			found = append(found, p)
		}
		if isDir && !descend {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if apperrors.CodeOf(err) == apperrors.CodeUnknown {
			return nil, apperrors.WrapPath(err, apperrors.CodeIO, "expand", root)
		}
		return nil, err
	}

	slices.Sort(found)
	return found, nil
}
