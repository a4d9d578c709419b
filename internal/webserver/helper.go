package webserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/blobpress/internal/xpath"
)

const (
	containerMetaPrefix       = "X-Container-Meta-"
	containerRemoveMetaPrefix = "X-Remove-Container-Meta-"
	objectMetaPrefix          = "X-Object-Meta-"
)

// param returns the unescaped path parameter.
// The router matches on the raw path when the request path holds escaped characters.
func param(c echo.Context, name string) string {
	p := c.Param(name)
	if c.Request().URL.RawPath != "" {
		return xpath.Unescape(p)
	}
	return p
}

// metas extracts the metadata carried by the headers with the given prefix.
// Keys are lower-cased and empty values are kept.
func metas(h http.Header, prefix string) map[string]string {
	m := map[string]string{}
	for key, values := range h {
		if len(values) == 0 || len(key) <= len(prefix) || !strings.EqualFold(key[:len(prefix)], prefix) {
			continue
		}
		m[strings.ToLower(key[len(prefix):])] = values[0]
	}
	return m
}

func setMetas(c echo.Context, prefix string, metas map[string]string) {
	for key, value := range metas {
		c.Response().Header().Set(prefix+key, value)
	}
}

func setHeaders(c echo.Context, headers map[string]string) {
	for key, value := range headers {
		c.Response().Header().Set(key, value)
	}
}

// limit returns the listing limit requested by the client, capped to max.
func limit(c echo.Context, max int) int {
	n, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || n <= 0 || n > max {
		return max
	}
	return n
}

func wantsJSON(c echo.Context) bool {
	return c.QueryParam("format") == "json" || strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
