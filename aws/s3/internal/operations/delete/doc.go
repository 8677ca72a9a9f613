// Package delete handles S3 object deletion.
//
// Deleting an object that does not exist succeeds, matching the idempotent
// delete semantics of S3.
package delete
