package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

// A Stage names the step of the object processing that failed.
type Stage string

// Processing stages.
const (
	StageProbe      Stage = "probe"
	StageRead       Stage = "read"
	StageCompress   Stage = "compress"
	StageWrite      Stage = "write"
	StageProperties Stage = "properties"
)

// A ConfigError is returned before any processing when the pass configuration is invalid.
type ConfigError struct {
	Message string
}

func configErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&ConfigError{Message: fmt.Sprintf(format, args...)})
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Message
}

// An EnumerationError is returned when the container listing fails. It aborts the run.
type EnumerationError struct {
	Container string
	Err       error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("could not enumerate %s: %s", e.Container, e.Err)
}

// Unwrap returns the listing error.
func (e *EnumerationError) Unwrap() error {
	return e.Err
}

// An ObjectError is the failure of one object. It never aborts the run.
type ObjectError struct {
	Path  string
	Stage Stage
	// Inconsistent is set when the body was written but its properties were not.
	Inconsistent bool
	Err          error
}

func (e *ObjectError) Error() string {
	if e.Inconsistent {
		return fmt.Sprintf("%s: %s (body written, properties not updated): %s", e.Path, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *ObjectError) Unwrap() error {
	return e.Err
}

// IsProbe reports whether the existence or state probe of the object failed.
func (e *ObjectError) IsProbe() bool {
	return e.Stage == StageProbe
}

// IsRead reports whether reading the object body failed.
func (e *ObjectError) IsRead() bool {
	return e.Stage == StageRead
}

// IsWrite reports whether writing the body or the properties failed.
func (e *ObjectError) IsWrite() bool {
	return e.Stage == StageWrite || e.Stage == StageProperties
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsEnumerationError reports whether err is an EnumerationError.
func IsEnumerationError(err error) bool {
	var ee *EnumerationError
	return errors.As(err, &ee)
}
