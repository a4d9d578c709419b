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
	"github.com/mdouchement/blobpress/internal/webserver/service"
	"github.com/mdouchement/blobpress/internal/webserver/weberror"
	"github.com/mdouchement/logger"
	"github.com/ncw/swift/v2"
)

type object struct {
	sync.Locker
	logger  logger.Logger
	db      database.Client
	storage storage.Backend
}

func (h *object) Show(c echo.Context) error {
	c.Set("handler_method", "object.Show")

	_, object, metas, err := h.load(param(c, "container"), param(c, "*"))
	if err != nil {
		return err
	}

	h.setHeaders(c, object, metas)
	return c.NoContent(http.StatusOK)
}

// Download serves the body as stored along with the CORS headers granted by the container.
func (h *object) Download(c echo.Context) error {
	c.Set("handler_method", "object.Download")

	container, object, metas, err := h.load(param(c, "container"), param(c, "*"))
	if err != nil {
		return err
	}

	if origin := c.Request().Header.Get(echo.HeaderOrigin); origin != "" {
		cmetas, err := h.db.FindMetas(container.ID, "")
		if err != nil {
			return weberror.New(http.StatusInternalServerError, err.Error())
		}
		setHeaders(c, service.CORSHeaders(cmetas, origin))
	}

	//

	downloader := service.NewObjectDownloader(h.storage, container, object)
	r, err := downloader.Stream()
	if err != nil {
		return weberror.Swift(swift.ObjectCorrupted)
	}
	defer r.Close()

	h.setHeaders(c, object, metas)
	return c.Stream(http.StatusOK, downloader.ContentType(), r)
}

// Update replaces the object metadata, encoding and cache control. The content type is only changed when given.
func (h *object) Update(c echo.Context) error {
	c.Set("handler_method", "object.Update")

	h.Lock()
	defer h.Unlock()

	container, object, _, err := h.load(param(c, "container"), param(c, "*"))
	if err != nil {
		return err
	}

	//

	m := metas(c.Request().Header, objectMetaPrefix)
	h.logger.Debugf("object.Update: %s metas %v", object.Key, m)

	err = h.db.ReplaceMetas(container.ID, object.Key, m)
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	object.ContentEncoding = c.Request().Header.Get(echo.HeaderContentEncoding)
	object.CacheControl = c.Request().Header.Get("Cache-Control")
	if ct := c.Request().Header.Get(echo.HeaderContentType); ct != "" {
		object.ContentType = ct
	}

	if err := h.db.Save(object); err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	//

	c.Response().Header().Set("Date", time.Now().UTC().Format(http.TimeFormat))
	c.Response().Header().Set("X-Timestamp", strconv.FormatInt(object.CreatedAt.Unix(), 10))
	return c.NoContent(http.StatusAccepted)
}

// Upload creates or replaces the object, its properties and its metadata.
func (h *object) Upload(c echo.Context) error {
	c.Set("handler_method", "object.Upload")

	h.Lock()
	defer h.Unlock()

	container, object, _, err := h.load(param(c, "container"), param(c, "*"))
	if err != nil && weberror.StatusCode(err) != http.StatusNotFound {
		return err
	}
	if container == nil {
		return weberror.Swift(swift.ContainerNotFound)
	}

	//

	if object == nil {
		object = &model.Object{
			ContainerID: container.ID,
			Key:         param(c, "*"),
		}
	}
	object.ContentType = c.Request().Header.Get(echo.HeaderContentType)
	if object.ContentType == "" {
		object.ContentType = echo.MIMEOctetStream
	}
	object.ContentEncoding = c.Request().Header.Get(echo.HeaderContentEncoding)
	object.CacheControl = c.Request().Header.Get("Cache-Control")

	uploader := service.NewObjectUploader(h.storage, container, object)
	err = uploader.Upload(c.Request().Body, strings.ToLower(c.Request().Header.Get("Etag")))
	if err == service.ErrChecksumMismatch {
		return weberror.New(http.StatusUnprocessableEntity, swift.ObjectCorrupted.Text)
	}
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	//

	if err := h.db.Save(object); err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	err = h.db.ReplaceMetas(container.ID, object.Key, metas(c.Request().Header, objectMetaPrefix))
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	//

	c.Response().Header().Set("Date", time.Now().UTC().Format(http.TimeFormat))
	c.Response().Header().Set("X-Timestamp", strconv.FormatInt(object.CreatedAt.Unix(), 10))
	c.Response().Header().Set("Last-Modified", object.UpdatedAt.UTC().Format(http.TimeFormat))
	c.Response().Header().Set("Etag", object.Checksum)
	return c.NoContent(http.StatusCreated)
}

func (h *object) Delete(c echo.Context) error {
	c.Set("handler_method", "object.Delete")

	h.Lock()
	defer h.Unlock()

	container, object, _, err := h.load(param(c, "container"), param(c, "*"))
	if err != nil {
		return err
	}

	err = service.NewObjectDestroyer(h.db, h.storage, container, object).Destroy()
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// Preflight answers the CORS preflight requests according to the container metadata.
func (h *object) Preflight(c echo.Context) error {
	c.Set("handler_method", "object.Preflight")

	container, err := h.db.FindContainerByName(param(c, "container"))
	if err != nil {
		if h.db.IsNotFound(err) {
			return weberror.New(http.StatusUnauthorized, swift.AuthorizationFailed.Text)
		}
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	metas, err := h.db.FindMetas(container.ID, "")
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	headers := service.PreflightHeaders(metas, c.Request().Header.Get(echo.HeaderOrigin))
	if headers == nil {
		return weberror.New(http.StatusUnauthorized, swift.AuthorizationFailed.Text)
	}

	setHeaders(c, headers)
	return c.NoContent(http.StatusOK)
}

func (h *object) setHeaders(c echo.Context, object *model.Object, metas map[string]string) {
	setMetas(c, objectMetaPrefix, metas)

	c.Response().Header().Set("Date", time.Now().UTC().Format(http.TimeFormat))
	c.Response().Header().Set("X-Timestamp", strconv.FormatInt(object.CreatedAt.Unix(), 10))
	c.Response().Header().Set("Last-Modified", object.UpdatedAt.UTC().Format(http.TimeFormat))
	c.Response().Header().Set(echo.HeaderContentType, object.ContentType)
	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(object.Size, 10))
	c.Response().Header().Set("Etag", object.Checksum)
	if object.ContentEncoding != "" {
		c.Response().Header().Set(echo.HeaderContentEncoding, object.ContentEncoding)
	}
	if object.CacheControl != "" {
		c.Response().Header().Set("Cache-Control", object.CacheControl)
	}
}

// load returns the container, the object and its metadata.
// A missing container or object is returned as a Swift not found error along with what has been found.
func (h *object) load(containername, objectname string) (*model.Container, *model.Object, map[string]string, error) {
	container, err := h.db.FindContainerByName(containername)
	if err != nil {
		if h.db.IsNotFound(err) {
			return nil, nil, nil, weberror.Swift(swift.ContainerNotFound)
		}
		return nil, nil, nil, weberror.New(http.StatusInternalServerError, err.Error())
	}

	//

	object, err := h.db.FindObjectByKey(container.ID, objectname)
	if err != nil {
		if h.db.IsNotFound(err) {
			return container, nil, nil, weberror.Swift(swift.ObjectNotFound)
		}
		return container, nil, nil, weberror.New(http.StatusInternalServerError, err.Error())
	}

	//

	metas, err := h.db.FindMetas(container.ID, objectname)
	if err != nil {
		return container, object, nil, weberror.New(http.StatusInternalServerError, err.Error())
	}

	return container, object, metas, nil
}
