package storage

import (
	"io"
	fspkg "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const partialext = ".partial"

type fs struct {
	workspace string
}

// NewFileSystem returns a new File System backend.
func NewFileSystem(workspace string) Backend {
	return &fs{
		workspace: workspace,
	}
}

func (b *fs) Name() string {
	return "file_system"
}

func (b *fs) Reader(container, object string) (io.ReadCloser, error) {
	rc, err := os.Open(b.path(container, object))
	if err != nil {
		return nil, errors.Wrap(err, "could not open file")
	}
	return rc, nil
}

func (b *fs) Writer(container, object string) (Writer, error) {
	filename := b.path(container, object)
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, errors.Wrap(err, "could not create directory")
	}

	f, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*"+partialext)
	if err != nil {
		return nil, errors.Wrap(err, "could not create file")
	}

	return &atomicfile{
		File:     f,
		filename: filename,
	}, nil
}

func (b *fs) RemoveAll(path string) error {
	return b.Remove(path, "")
}

func (b *fs) Remove(container, object string) error {
	err := os.RemoveAll(b.path(container, object))
	if err != nil {
		return errors.Wrap(err, "could not delete file")
	}
	return nil
}

func (b *fs) Cleanup() error {
	// Find empty directories and partial files.
	//
	stats := map[string]int{}
	var partials []string
	err := filepath.Walk(b.workspace, func(path string, info fspkg.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == b.workspace {
				return nil
			}
			stats[path] += 0
			return nil
		}

		if strings.HasSuffix(path, ".DS_Store") {
			return nil
		}
		if strings.HasSuffix(path, partialext) {
			partials = append(partials, path)
			return nil
		}

		for dir := filepath.Dir(path); dir != b.workspace && strings.HasPrefix(dir, b.workspace); dir = filepath.Dir(dir) {
			stats[dir]++
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "cleanup")
	}

	// Remove partial files and empty directories.
	//
	for _, filename := range partials {
		os.Remove(filename)
	}
	for dirname, count := range stats {
		if count == 0 {
			os.RemoveAll(dirname)
		}
	}
	return nil
}

func (b *fs) path(container, object string) string {
	return filepath.Join(b.workspace, container, filepath.FromSlash(object))
}

//
//-----
//

type atomicfile struct {
	*os.File
	filename string
	done     bool
}

func (f *atomicfile) Close() error {
	if f.done {
		return nil
	}
	f.done = true

	if err := f.File.Sync(); err != nil {
		f.File.Close()
		os.Remove(f.File.Name())
		return errors.Wrap(err, "could not sync file")
	}

	if err := f.File.Close(); err != nil {
		os.Remove(f.File.Name())
		return errors.Wrap(err, "could not close file")
	}

	err := os.Rename(f.File.Name(), f.filename)
	return errors.Wrap(err, "could not commit file")
}

func (f *atomicfile) Abort() error {
	if f.done {
		return nil
	}
	f.done = true

	f.File.Close()
	return errors.Wrap(os.Remove(f.File.Name()), "could not abort file")
}
