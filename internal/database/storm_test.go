package database

import (
	"path/filepath"
	"testing"

	"github.com/mdouchement/blobpress/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) Client {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "blobpress.db")
	require.NoError(t, StormInit(filename))

	db, err := StormOpen(filename)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestContainers(t *testing.T) {
	db := open(t)

	for _, name := range []string{"site", "assets"} {
		require.NoError(t, db.Save(&model.Container{Name: name}))
	}

	containers, err := db.ListContainers()
	require.NoError(t, err)
	require.Len(t, containers, 2)
	assert.Equal(t, "assets", containers[0].Name)
	assert.NotEmpty(t, containers[0].ID)
	assert.NotNil(t, containers[0].CreatedAt)

	container, err := db.FindContainerByName("site")
	require.NoError(t, err)
	require.NoError(t, db.DeleteContainer(container.ID))

	_, err = db.FindContainerByName("site")
	assert.True(t, db.IsNotFound(err))
}

func TestObjects(t *testing.T) {
	db := open(t)

	container := &model.Container{Name: "site"}
	require.NoError(t, db.Save(container))

	for _, key := range []string{"b.js", "a/c.css", "a.js"} {
		require.NoError(t, db.Save(&model.Object{ContainerID: container.ID, Key: key}))
	}

	objects, err := db.FindObjectsByContainerID(container.ID)
	require.NoError(t, err)
	require.Len(t, objects, 3)
	assert.Equal(t, "a.js", objects[0].Key)
	assert.Equal(t, "a/c.css", objects[1].Key)
	assert.Equal(t, "b.js", objects[2].Key)

	object, err := db.FindObjectByKey(container.ID, "a/c.css")
	require.NoError(t, err)
	require.NoError(t, db.DeleteObject(object.ID))

	_, err = db.FindObjectByKey(container.ID, "a/c.css")
	assert.True(t, db.IsNotFound(err))

	objects, err = db.FindObjectsByContainerID("unknown")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestMetas(t *testing.T) {
	db := open(t)

	require.NoError(t, db.UpdateMetas("cid", "a.js", map[string]string{"Color": "orange", "size": "xl"}))
	require.NoError(t, db.UpdateMetas("cid", "", map[string]string{"access-control-allow-origin": "*"}))

	metas, err := db.FindMetas("cid", "a.js")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"color": "orange", "size": "xl"}, metas)

	require.NoError(t, db.UpdateMetas("cid", "a.js", map[string]string{"color": "", "size": "s"}))
	metas, err = db.FindMetas("cid", "a.js")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"size": "s"}, metas)

	require.NoError(t, db.ReplaceMetas("cid", "a.js", map[string]string{"flavor": "vanilla"}))
	metas, err = db.FindMetas("cid", "a.js")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"flavor": "vanilla"}, metas)

	require.NoError(t, db.DeleteMetas("cid", "a.js"))
	metas, err = db.FindMetas("cid", "a.js")
	require.NoError(t, err)
	assert.Empty(t, metas)

	metas, err = db.FindMetas("cid", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"access-control-allow-origin": "*"}, metas)
}
