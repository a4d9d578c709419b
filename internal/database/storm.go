package database

import (
	"sort"
	"strings"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/json"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/mdouchement/blobpress/internal/model"
	"github.com/pkg/errors"
)

type strm struct {
	db *storm.DB
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(json.Codec)

// StormInit initializes Storm database.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.Init(&model.Container{}); err != nil {
		return errors.Wrap(err, "could not init container index")
	}

	if err := db.Init(&model.Object{}); err != nil {
		return errors.Wrap(err, "could not init object index")
	}

	err = db.Init(&model.Meta{})
	return errors.Wrap(err, "could not init meta index")
}

// StormReIndex rebuilds the indexes of the Storm database.
func StormReIndex(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.ReIndex(&model.Container{}); err != nil {
		return errors.Wrap(err, "could not ReIndex containers")
	}

	if err := db.ReIndex(&model.Object{}); err != nil {
		return errors.Wrap(err, "could not ReIndex objects")
	}

	err = db.ReIndex(&model.Meta{})
	return errors.Wrap(err, "could not ReIndex metas")
}

// StormOpen opens the Storm database.
func StormOpen(database string) (Client, error) {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	return &strm{
		db: db,
	}, nil
}

func (c *strm) Save(m model.Model) error {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
		m.SetCreatedAt(t)
	}

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

func (c *strm) Close() error {
	return c.db.Close()
}

func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

//
// Container
//

func (c *strm) ListContainers() ([]*model.Container, error) {
	containers := make([]*model.Container, 0)
	err := c.db.All(&containers)
	if c.IsNotFound(err) {
		err = nil
	}

	sort.Slice(containers, func(i, j int) bool {
		return containers[i].Name < containers[j].Name
	})
	return containers, errors.Wrap(err, "could not get all containers")
}

func (c *strm) FindContainerByName(name string) (*model.Container, error) {
	var container model.Container
	err := c.db.One("Name", name, &container)
	return &container, errors.Wrap(err, "could not find container")
}

func (c *strm) DeleteContainer(id string) error {
	err := c.db.Select(q.Eq("ID", id)).Delete(&model.Container{})
	return errors.Wrap(err, "could not delete container")
}

//
// Object
//

func (c *strm) FindObjectsByContainerID(id string) ([]*model.Object, error) {
	objects := make([]*model.Object, 0)
	err := c.db.Select(q.Eq("ContainerID", id)).OrderBy("Key").Find(&objects)
	if c.IsNotFound(err) {
		err = nil
	}
	return objects, errors.Wrap(err, "could not get objects by container_id")
}

func (c *strm) FindObjectByKey(cid, key string) (*model.Object, error) {
	var object model.Object
	err := c.db.Select(q.Eq("ContainerID", cid), q.Eq("Key", key)).First(&object)
	return &object, errors.Wrap(err, "could not find object")
}

func (c *strm) DeleteObject(id string) error {
	err := c.db.Select(q.Eq("ID", id)).Delete(&model.Object{})
	return errors.Wrap(err, "could not delete object")
}

//
// Meta
//

func (c *strm) FindMetas(cid, okey string) (map[string]string, error) {
	metas, err := c.metas(cid, okey)
	if err != nil {
		return nil, err
	}

	m := make(map[string]string, len(metas))
	for _, meta := range metas {
		m[meta.Key] = meta.Value
	}
	return m, nil
}

func (c *strm) UpdateMetas(cid, okey string, metas map[string]string) error {
	existing, err := c.metas(cid, okey)
	if err != nil {
		return err
	}

	index := make(map[string]*model.Meta, len(existing))
	for _, meta := range existing {
		index[meta.Key] = meta
	}

	for key, value := range metas {
		key = strings.ToLower(key)
		meta, ok := index[key]

		if value == "" {
			if ok {
				if err := c.Delete(meta); err != nil {
					return errors.Wrap(err, "could not delete meta")
				}
			}
			continue
		}

		if !ok {
			meta = &model.Meta{ContainerID: cid, ObjectKey: okey, Key: key}
		}
		meta.Value = value
		if err := c.Save(meta); err != nil {
			return errors.Wrap(err, "could not save meta")
		}
	}
	return nil
}

func (c *strm) ReplaceMetas(cid, okey string, metas map[string]string) error {
	if err := c.DeleteMetas(cid, okey); err != nil {
		return err
	}
	return c.UpdateMetas(cid, okey, metas)
}

func (c *strm) DeleteMetas(cid, okey string) error {
	err := c.db.Select(q.Eq("ContainerID", cid), q.Eq("ObjectKey", okey)).Delete(&model.Meta{})
	if c.IsNotFound(err) {
		return nil
	}
	return errors.Wrap(err, "could not delete metas")
}

func (c *strm) metas(cid, okey string) ([]*model.Meta, error) {
	metas := make([]*model.Meta, 0)
	err := c.db.Select(q.Eq("ContainerID", cid), q.Eq("ObjectKey", okey)).Find(&metas)
	if c.IsNotFound(err) {
		err = nil
	}
	return metas, errors.Wrap(err, "could not find metas")
}
