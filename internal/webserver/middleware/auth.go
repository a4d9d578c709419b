package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/blobpress/internal/webserver/weberror"
	"github.com/ncw/swift/v2"
)

// Authenticate rejects the requests that do not carry the given token.
func Authenticate(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			if c.Request().Header.Get("X-Auth-Token") != token {
				return weberror.New(http.StatusUnauthorized, swift.AuthorizationFailed.Text)
			}

			return next(c)
		}
	}
}
