package storage

import "io"

// Backend is the interface that wraps the basic file operations.
type Backend interface {
	// Name returns the name of the backend implementation.
	Name() string

	// Reader returns a ReadCloser of the file.
	Reader(container, object string) (io.ReadCloser, error)
	// Writer returns a WriteCloser of the file.
	// The file is replaced atomically when the writer is closed, Abort discards what has been written.
	Writer(container, object string) (Writer, error)

	// Remove deletes the given file.
	Remove(container, object string) error
	// RemoveAll deletes all the file and folders.
	RemoveAll(path string) error
	// Cleanup cleans useless artifacts in storage.
	Cleanup() error
}

// A Writer writes a file that becomes visible on Close.
type Writer interface {
	io.WriteCloser
	// Abort discards the written data.
	Abort() error
}
