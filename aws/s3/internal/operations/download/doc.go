// Package download handles S3 object download operations.
//
// Objects are streamed into a sibling ".part" file that is renamed onto the
// destination only once the body has been read completely, so an
// interrupted download never leaves a partial file under the final name.
package download
