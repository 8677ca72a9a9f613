// Package s3 is a small client for S3-compatible object stores that speaks
// the S3 REST protocol directly.
//
// Every request is presigned with AWS Signature Version 4 immediately before
// it is sent, using a short validity window, so credentials travel only as a
// query signature. The client covers exactly what an archive transfer needs:
// verifying or creating the bucket, uploading a file with the multipart
// protocol, downloading an object to a file, reading object metadata and
// deleting an object.
//
// Example usage:
//
//	endpoint, _ := url.Parse("https://minio.example.com")
//	bucket, err := s3types.NewBucket(endpoint, "artifacts", "", s3types.URLStylePath)
//	if err != nil {
//	    return err
//	}
//
//	creds := s3types.Credentials{AccessKey: "AKID", SecretKey: "secret"}
//	client, err := s3.New(bucket, creds.Provider(), s3.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	if err := client.EnsureBucket(ctx); err != nil {
//	    return err
//	}
//	result, err := client.Put(ctx, "build-42", "/tmp/export.tar.gz")
//
// The client is intended for sequential use by a single caller.
package s3
