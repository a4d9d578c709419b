package service

import (
	"io"

	"github.com/mdouchement/blobpress/internal/model"
	"github.com/mdouchement/blobpress/internal/storage"
)

// An ObjectDownloader streams the stored body of an object.
// The body is served as stored, a gzip encoded object is never inflated.
type ObjectDownloader struct {
	storage   storage.Backend
	container *model.Container
	object    *model.Object
}

// NewObjectDownloader returns a new ObjectDownloader.
func NewObjectDownloader(storage storage.Backend, container *model.Container, object *model.Object) *ObjectDownloader {
	return &ObjectDownloader{
		storage:   storage,
		container: container,
		object:    object,
	}
}

func (s *ObjectDownloader) Stream() (io.ReadCloser, error) {
	return s.storage.Reader(s.container.Name, s.object.Key)
}

func (s *ObjectDownloader) ContentType() string {
	return s.object.ContentType
}

func (s *ObjectDownloader) Size() int64 {
	return s.object.Size
}

func (s *ObjectDownloader) Checksum() string {
	return s.object.Checksum
}
