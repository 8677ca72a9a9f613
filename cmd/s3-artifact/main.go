// Package main is the entry point for the s3-artifact CLI.
//
// s3-artifact packs sets of files into a tar.gz archive and stores it in an
// S3-compatible bucket, or fetches such an archive and extracts it.
//
// Commands: upload, download.
//
// For detailed usage information, run:
//
//	s3-artifact --help
package main

import (
	"fmt"
	"os"

	"github.com/input-output-hk/s3-artifact-handler/cmd/s3-artifact/commands"
)

func main() {
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
