package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/blobpress/internal/webserver/weberror"
	"github.com/mdouchement/logger"
)

// NewHTTPErrorHandler is a middleware that formats rendered errors.
// HEAD requests get the status code only.
func NewHTTPErrorHandler(log logger.Logger) func(err error, c echo.Context) {
	log = log.WithPrefix("[webserver]")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		werr := weberror.Convert(err)
		if werr.Code >= http.StatusInternalServerError {
			log.Error(err)
		} else {
			log.Debugf("%s %s: %s", c.Request().Method, c.Request().URL.Path, werr)
		}

		var err2 error
		if c.Request().Method == http.MethodHead {
			err2 = c.NoContent(werr.Code)
		} else {
			err2 = c.JSON(werr.Code, werr)
		}
		if err2 != nil {
			log.Errorf("HTTPErrorHandler: %s", err2)
		}
	}
}
