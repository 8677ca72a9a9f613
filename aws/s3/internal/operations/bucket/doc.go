// Package bucket verifies that the target bucket exists and creates it when
// it does not.
package bucket
