package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/logger"
)

// Logger is a middleware that logs the served requests.
func Logger(log logger.Logger) echo.MiddlewareFunc {
	log = log.WithPrefix("[webserver]")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			handler, _ := c.Get("handler_method").(string)
			log.Infof("%s %s %d %s (%s)",
				c.Request().Method,
				c.Request().URL.Path,
				c.Response().Status,
				time.Since(start).Round(time.Microsecond),
				handler,
			)
			return nil
		}
	}
}
