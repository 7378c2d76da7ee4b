// Package storage keeps uploaded files on the local file system.
package storage

import "io"

// Object describes a stored upload.
type Object struct {
	Name string
	Size int64
}

// Provider is the interface for upload file operations.
type Provider interface {
	// Save streams r into a new object whose name is a random id plus ext.
	// It fails with ErrTooLarge once more than limit bytes were read.
	Save(ext string, r io.Reader, limit int64) (Object, error)
	// Open returns the object for reading.
	Open(name string) (io.ReadSeekCloser, error)
	// Delete removes an object.
	Delete(name string) error
}
