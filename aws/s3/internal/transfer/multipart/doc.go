// Package multipart implements the three-step S3 multipart upload
// (initiate, upload parts, complete) over presigned requests.
//
// Parts are uploaded strictly in sequence. A failure at any step ends the
// call; the server-side session is abandoned without an abort request.
package multipart
