package handlers

import (
	"context"
	"fmt"
	"io"

	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
)

// UploadRequest holds the arguments of the upload command.
type UploadRequest struct {
	Common
	Object string
	Files  []string
}

// Upload archives the requested files, stores the archive and prints the
// object key to stdout.
func Upload(ctx context.Context, req UploadRequest, stdout, stderr io.Writer) error {
	if len(req.Files) == 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "upload", "at least one file or pattern is required")
	}

	t, logger, err := newSession(ctx, req.Common, stderr)
	if err != nil {
		return err
	}

	logger.Debug("uploading", "files", req.Files, "key", req.Object)
	key, err := t.Upload(ctx, req.Files, req.Object)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, key)
	return err
}
