// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the s3-artifact CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "s3-artifact",
		Short:         "Move file sets to and from S3 as tar.gz archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (default from config, else info)")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	cmd.AddCommand(Upload())
	cmd.AddCommand(Download())

	return cmd
}

// logFlags reads the global logging flags. They are inherited from the root
// command and absent when a subcommand is used on its own.
func logFlags(cmd *cobra.Command) (level, format string) {
	level, _ = cmd.Flags().GetString("log-level")
	format, _ = cmd.Flags().GetString("log-format")
	return level, format
}
