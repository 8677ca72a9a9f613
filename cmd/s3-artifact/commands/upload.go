package commands

import (
	"github.com/spf13/cobra"

	"github.com/input-output-hk/s3-artifact-handler/cmd/s3-artifact/handlers"
)

// Upload returns the command that archives files and stores them in a bucket.
//
// The bucket is created when it does not exist. The object key is printed on
// standard output; a random one is generated when --object is omitted.
//
// Required flags:
//
//	--config-file: Path to the store configuration file
//	--bucket:      Target bucket
//	--files:       Comma-separated paths or glob patterns; a directory needs a
//	               trailing / to include its contents
func Upload() *cobra.Command {
	var req handlers.UploadRequest

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Archive files and upload them to a bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.LogLevel, req.LogFormat = logFlags(cmd)
			return handlers.Upload(cmd.Context(), req, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&req.ConfigFile, "config-file", "", "Path to the store configuration file")
	cmd.Flags().StringVar(&req.Bucket, "bucket", "", "Bucket to upload to (created if missing)")
	cmd.Flags().StringVar(&req.Object, "object", "", "Object key (default: random UUID)")
	cmd.Flags().StringSliceVar(&req.Files, "files", nil, "Comma-separated paths or glob patterns to archive (end a directory with / to include its contents)")
	_ = cmd.MarkFlagRequired("config-file")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("files")

	return cmd
}
