// Package internal contains private implementation details for the S3 module.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - presign: SigV4 query presigning
//   - s3api: the request seam that presigns and sends requests
//   - wire: XML documents and error decoding
//   - operations: bucket, download, delete and head operations
//   - transfer: the multipart upload protocol
//   - validation: Input validation logic
package internal
