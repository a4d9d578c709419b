package webserver

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/blobpress/internal/database"
	"github.com/mdouchement/blobpress/internal/model"
	"github.com/mdouchement/blobpress/internal/storage"
	"github.com/mdouchement/blobpress/internal/webserver/serializer"
	"github.com/mdouchement/blobpress/internal/webserver/service"
	"github.com/mdouchement/blobpress/internal/webserver/weberror"
	"github.com/mdouchement/logger"
	"github.com/ncw/swift/v2"
)

type container struct {
	sync.Locker
	logger  logger.Logger
	db      database.Client
	storage storage.Backend
	limit   int
}

func (h *container) List(c echo.Context) error {
	c.Set("handler_method", "container.List")

	containers, err := h.db.ListContainers()
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	// Pagination
	prefix := c.QueryParam("prefix")
	marker := c.QueryParam("marker")
	limit := limit(c, h.limit)

	page := make([]*model.Container, 0)
	for _, container := range containers {
		if len(page) == limit {
			break
		}
		if strings.HasPrefix(container.Name, prefix) && container.Name > marker {
			page = append(page, container)
		}
	}

	//

	c.Response().Header().Set("X-Account-Container-Count", strconv.Itoa(len(containers)))
	if !wantsJSON(c) {
		return c.String(http.StatusOK, serializer.TextContainers(page))
	}

	stats := map[string]serializer.ContainerStats{}
	for _, container := range page {
		objects, err := h.db.FindObjectsByContainerID(container.ID)
		if err != nil {
			return weberror.New(http.StatusInternalServerError, err.Error())
		}
		stats[container.ID] = usage(objects)
	}
	return c.JSON(http.StatusOK, serializer.Containers(page, stats))
}

func (h *container) Show(c echo.Context) error {
	c.Set("handler_method", "container.Show")

	container, err := h.db.FindContainerByName(param(c, "container"))
	if err != nil {
		if h.db.IsNotFound(err) {
			return weberror.Swift(swift.ContainerNotFound)
		}

		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	objects, err := h.db.FindObjectsByContainerID(container.ID)
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	metas, err := h.db.FindMetas(container.ID, "")
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	//

	stats := usage(objects)
	setMetas(c, containerMetaPrefix, metas)
	c.Response().Header().Set("Date", time.Now().UTC().Format(http.TimeFormat))
	c.Response().Header().Set("X-Timestamp", strconv.FormatInt(container.CreatedAt.Unix(), 10))
	c.Response().Header().Set("X-Container-Object-Count", strconv.FormatInt(stats.Count, 10))
	c.Response().Header().Set("X-Container-Bytes-Used", strconv.FormatInt(stats.Bytes, 10))

	switch c.Request().Method {
	case http.MethodHead:
		return c.NoContent(http.StatusNoContent)
	case http.MethodGet:
		objects = serializer.Page(objects, c.QueryParam("prefix"), c.QueryParam("marker"), limit(c, h.limit))

		if !wantsJSON(c) {
			return c.String(http.StatusOK, serializer.TextObjects(objects))
		}
		return c.JSON(http.StatusOK, serializer.Objects(objects))
	}
	return weberror.Swift(swift.BadRequest)
}

func (h *container) Create(c echo.Context) error {
	c.Set("handler_method", "container.Create")

	h.Lock()
	defer h.Unlock()

	status := http.StatusAccepted
	container, err := h.db.FindContainerByName(param(c, "container"))
	if err != nil && !h.db.IsNotFound(err) {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	if h.db.IsNotFound(err) {
		status = http.StatusCreated
		container = &model.Container{Name: param(c, "container")}
		err = h.db.Save(container)
		if err != nil {
			return weberror.New(http.StatusInternalServerError, err.Error())
		}
	}

	err = h.db.UpdateMetas(container.ID, "", metas(c.Request().Header, containerMetaPrefix))
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	//

	c.Response().Header().Set("Date", time.Now().UTC().Format(http.TimeFormat))
	c.Response().Header().Set("X-Timestamp", strconv.FormatInt(container.CreatedAt.Unix(), 10))
	return c.NoContent(status)
}

// Update sets the container metadata.
// An empty value or a `X-Remove-Container-Meta-' header removes the entry.
func (h *container) Update(c echo.Context) error {
	c.Set("handler_method", "container.Update")

	h.Lock()
	defer h.Unlock()

	container, err := h.db.FindContainerByName(param(c, "container"))
	if err != nil {
		if h.db.IsNotFound(err) {
			return weberror.Swift(swift.ContainerNotFound)
		}

		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	//

	m := metas(c.Request().Header, containerMetaPrefix)
	for key := range metas(c.Request().Header, containerRemoveMetaPrefix) {
		m[key] = ""
	}

	err = h.db.UpdateMetas(container.ID, "", m)
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	if err = h.db.Save(container); err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set("Date", time.Now().UTC().Format(http.TimeFormat))
	return c.NoContent(http.StatusNoContent)
}

func (h *container) Delete(c echo.Context) error {
	c.Set("handler_method", "container.Delete")

	h.Lock()
	defer h.Unlock()

	container, err := h.db.FindContainerByName(param(c, "container"))
	if err != nil {
		if h.db.IsNotFound(err) {
			return weberror.Swift(swift.ContainerNotFound)
		}

		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	//

	objects, err := h.db.FindObjectsByContainerID(container.ID)
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	if len(objects) > 0 {
		return weberror.Swift(swift.ContainerNotEmpty)
	}

	//

	err = service.NewContainerDestroyer(h.db, h.storage, container).Destroy()
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

func usage(objects []*model.Object) serializer.ContainerStats {
	stats := serializer.ContainerStats{
		Count: int64(len(objects)),
	}
	for _, object := range objects {
		stats.Bytes += object.Size
	}
	return stats
}
