package service

import (
	"crypto/md5"
	"encoding/hex"
	"io"

	"github.com/mdouchement/blobpress/internal/model"
	"github.com/mdouchement/blobpress/internal/storage"
	"github.com/pkg/errors"
)

// An ObjectUploader stores the body of an object and computes its size and checksum.
type ObjectUploader struct {
	storage   storage.Backend
	container *model.Container
	object    *model.Object
}

// NewObjectUploader returns a new ObjectUploader.
func NewObjectUploader(storage storage.Backend, container *model.Container, object *model.Object) *ObjectUploader {
	return &ObjectUploader{
		storage:   storage,
		container: container,
		object:    object,
	}
}

// Upload performs the upload and update the inner Object.
// The previous body stays in place when the upload fails or when expected does not match the computed checksum.
func (s *ObjectUploader) Upload(r io.Reader, expected string) error {
	wc, err := s.storage.Writer(s.container.Name, s.object.Key)
	if err != nil {
		return err
	}
	defer wc.Abort()

	h := md5.New()
	w := io.MultiWriter(h, wc)

	n, err := io.Copy(w, r)
	if err != nil {
		return errors.Wrap(err, "could not upload body")
	}

	checksum := hex.EncodeToString(h.Sum(nil))
	if expected != "" && expected != checksum {
		return ErrChecksumMismatch
	}

	if err = wc.Close(); err != nil {
		return err
	}

	s.object.Size = n
	s.object.Checksum = checksum
	return nil
}

// ErrChecksumMismatch is returned when the uploaded body does not match the announced Etag.
var ErrChecksumMismatch = errors.New("checksum mismatch")
