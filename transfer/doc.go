// Package transfer composes path expansion, archiving and the object store
// into the two user-facing operations: upload a set of paths as one archive
// and download an archive back into a directory.
//
// Upload expands the given patterns, packs the matches into a local archive
// in the work directory, makes sure the bucket exists, uploads the archive
// and removes the local copy whatever the outcome. Download fetches the
// archive, extracts it, removes the local copy and optionally deletes the
// remote object.
package transfer
