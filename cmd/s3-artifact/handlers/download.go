package handlers

import (
	"context"
	"io"

	"github.com/input-output-hk/s3-artifact-handler/fs"
	"github.com/input-output-hk/s3-artifact-handler/transfer"
)

// DownloadRequest holds the arguments of the download command.
type DownloadRequest struct {
	Common
	Object string
	Dest   string
	Remove bool
}

// Download fetches the requested archive and extracts it into req.Dest.
func Download(ctx context.Context, req DownloadRequest, stderr io.Writer) error {
	t, logger, err := newSession(ctx, req.Common, stderr)
	if err != nil {
		return err
	}

	dest, err := fs.GetAbs(req.Dest)
	if err != nil {
		return err
	}

	logger.Debug("downloading", "key", req.Object, "path", dest)
	return t.Download(ctx, req.Object, dest, transfer.DownloadOptions{RemoveRemote: req.Remove})
}
