package weberror

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ncw/swift/v2"
)

type (
	// HTTPCoder interface is implemented by application errors.
	HTTPCoder interface {
		// HTTPCode return the HTTP status code for the given error.
		HTTPCode() int
	}

	// Error is the payload rendered in case of error.
	Error struct {
		Code    int    `json:"-"`
		Message string `json:"message"`
	}
)

// StatusCode the know HHTP status for the given err. If unknown, it returns 500.
func StatusCode(err error) int {
	if hc, ok := err.(HTTPCoder); ok {
		return hc.HTTPCode()
	}
	return http.StatusInternalServerError
}

// New returns a new Error.
func New(code int, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Swift returns the Error matching the given Swift error.
func Swift(err *swift.Error) error {
	return New(err.StatusCode, err.Text)
}

// Convert returns err as an Error.
func Convert(err error) *Error {
	switch e := err.(type) {
	case *Error:
		return e
	case *echo.HTTPError:
		return &Error{Code: e.Code, Message: fmt.Sprint(e.Message)}
	default:
		return &Error{Code: StatusCode(err), Message: err.Error()}
	}
}

// Error stringifies the error.
func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// HTTPCode returns the HTTP status code.
func (e *Error) HTTPCode() int {
	return e.Code
}
