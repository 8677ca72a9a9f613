// Package operations contains the core S3 operation implementations.
// Each operation builds an unsigned request, hands it to an s3api.API for
// presigning and sending, and classifies the response.
//
// Each operation is isolated into its own subpackage for better organization
// and testability.
package operations
