package commands

import (
	"github.com/spf13/cobra"

	"github.com/input-output-hk/s3-artifact-handler/cmd/s3-artifact/handlers"
)

// Download returns the command that fetches an archive and extracts it.
//
// Required flags:
//
//	--config-file: Path to the store configuration file
//	--bucket:      Source bucket
//	--object:      Object key of the archive
func Download() *cobra.Command {
	var req handlers.DownloadRequest

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download an archive from a bucket and extract it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.LogLevel, req.LogFormat = logFlags(cmd)
			return handlers.Download(cmd.Context(), req, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&req.ConfigFile, "config-file", "", "Path to the store configuration file")
	cmd.Flags().StringVar(&req.Bucket, "bucket", "", "Bucket to download from")
	cmd.Flags().StringVar(&req.Object, "object", "", "Object key of the archive")
	cmd.Flags().StringVar(&req.Dest, "dest", ".", "Directory to extract into")
	cmd.Flags().BoolVar(&req.Remove, "remove", false, "Delete the remote object after extraction")
	_ = cmd.MarkFlagRequired("config-file")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("object")

	return cmd
}
