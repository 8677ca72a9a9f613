// Package transfer groups the S3 transfer protocols that span several
// requests.
package transfer
