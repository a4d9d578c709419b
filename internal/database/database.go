package database

import (
	"github.com/mdouchement/blobpress/internal/model"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool

		ContainerInteraction
		ObjectInteraction
		MetaInteraction
	}

	// A ContainerInteraction defines all the methods used to interact with a container record.
	ContainerInteraction interface {
		ListContainers() ([]*model.Container, error)
		FindContainerByName(name string) (*model.Container, error)
		DeleteContainer(id string) error
	}

	// A ObjectInteraction defines all the methods used to interact with a object record.
	ObjectInteraction interface {
		// FindObjectsByContainerID returns the objects of the container sorted by key.
		FindObjectsByContainerID(id string) ([]*model.Object, error)
		FindObjectByKey(cid, key string) (*model.Object, error)
		DeleteObject(id string) error
	}

	// A MetaInteraction defines all the methods used to interact with the metadata of a container or an object.
	// An empty object key targets the container itself.
	MetaInteraction interface {
		FindMetas(cid, okey string) (map[string]string, error)
		// UpdateMetas sets the given metadata, an empty value removes the entry.
		UpdateMetas(cid, okey string, metas map[string]string) error
		// ReplaceMetas replaces all the metadata with the given ones.
		ReplaceMetas(cid, okey string, metas map[string]string) error
		DeleteMetas(cid, okey string) error
	}
)
