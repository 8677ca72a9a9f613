// Package head reads object metadata without transferring the body.
package head
