package service

import (
	"github.com/mdouchement/blobpress/internal/database"
	"github.com/mdouchement/blobpress/internal/model"
	"github.com/mdouchement/blobpress/internal/storage"
	"github.com/pkg/errors"
)

// A Destroyer removes records and their files from storage.
type Destroyer interface {
	Destroy() error
}

//
//-----
//

// An ObjectDestroyer removes the object, its metadata and its file.
type ObjectDestroyer struct {
	database  database.Client
	storage   storage.Backend
	container *model.Container
	object    *model.Object
}

// NewObjectDestroyer returns a new ObjectDestroyer.
func NewObjectDestroyer(database database.Client, storage storage.Backend, container *model.Container, object *model.Object) Destroyer {
	return &ObjectDestroyer{
		database:  database,
		storage:   storage,
		container: container,
		object:    object,
	}
}

func (s *ObjectDestroyer) Destroy() error {
	err := s.storage.Remove(s.container.Name, s.object.Key)
	if err != nil {
		return errors.Wrap(err, "ObjectDestroyer storage")
	}

	err = s.database.DeleteMetas(s.container.ID, s.object.Key)
	if err != nil {
		return errors.Wrap(err, "ObjectDestroyer meta")
	}

	err = s.database.DeleteObject(s.object.ID)
	return errors.Wrap(err, "ObjectDestroyer object")
}

//
//-----
//

// A ContainerDestroyer removes an empty container, its metadata and its directory.
type ContainerDestroyer struct {
	database  database.Client
	storage   storage.Backend
	container *model.Container
}

// NewContainerDestroyer returns a new ContainerDestroyer.
func NewContainerDestroyer(database database.Client, storage storage.Backend, container *model.Container) Destroyer {
	return &ContainerDestroyer{
		database:  database,
		storage:   storage,
		container: container,
	}
}

func (s *ContainerDestroyer) Destroy() error {
	err := s.database.DeleteMetas(s.container.ID, "")
	if err != nil {
		return errors.Wrap(err, "ContainerDestroyer meta")
	}

	err = s.database.DeleteContainer(s.container.ID)
	if err != nil {
		return errors.Wrap(err, "ContainerDestroyer container")
	}

	err = s.storage.RemoveAll(s.container.Name)
	return errors.Wrap(err, "ContainerDestroyer storage")
}
