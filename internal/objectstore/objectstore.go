// Package objectstore defines the object store capabilities used by the maintenance passes
// and their implementations.
package objectstore

import (
	"context"
	"strings"

	"github.com/mdouchement/blobpress/internal/xpath"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when an object or a container does not exist.
var ErrNotFound = errors.New("not found")

type (
	// A Store enumerates, reads and writes the objects of containers.
	Store interface {
		// Walk calls fn for every object of the container whose name starts with prefix.
		// Objects are fetched page by page, the listing is never fully loaded.
		// Walk stops and returns the error returned by fn.
		Walk(ctx context.Context, container, prefix string, fn WalkFunc) error
		// Stat returns the detailed object. It returns ErrNotFound when the object does not exist.
		Stat(ctx context.Context, container, name string) (*Object, error)
		// Exists reports whether the object exists.
		Exists(ctx context.Context, container, name string) (bool, error)
		// Read returns the raw stored body of the object.
		Read(ctx context.Context, container, name string) ([]byte, error)
		// WriteBody creates or replaces the object with the given body and properties.
		WriteBody(ctx context.Context, container, name string, body []byte, props Properties) error
		// SetProperties merges the given properties into the object ones, the body is untouched.
		// Empty fields keep their current value and an empty metadata value deletes the key.
		SetProperties(ctx context.Context, container, name string, props Properties) error
	}

	// A CORSConfigurer manages the cross-origin rules of containers.
	CORSConfigurer interface {
		// Containers returns the name of all the containers of the account.
		Containers(ctx context.Context) ([]string, error)
		// SetCORS replaces all the CORS rules of the container.
		SetCORS(ctx context.Context, container string, rules []CORSRule) error
	}

	// WalkFunc is called for each listed object.
	WalkFunc func(o *Object) error
)

// An Object describes one stored object.
type Object struct {
	Container       string
	Name            string
	ContentType     string
	ContentEncoding string
	CacheControl    string
	Size            int64
	Hash            string
	// Metadata holds the user metadata with lower-cased keys.
	Metadata map[string]string
	// Detailed is true when ContentEncoding, CacheControl and Metadata are known.
	// Listings of some stores only carry the name, type, size and hash.
	Detailed bool
}

// Path returns the `container/name' path of the object.
func (o *Object) Path() string {
	return xpath.Join(o.Container, o.Name)
}

// Meta returns the user metadata value for the given key.
func (o *Object) Meta(key string) string {
	if o.Metadata == nil {
		return ""
	}
	return o.Metadata[strings.ToLower(key)]
}

// Properties are the writable properties of an object.
type Properties struct {
	ContentType     string
	ContentEncoding string
	CacheControl    string
	Metadata        map[string]string
}

// A CORSRule allows cross-origin requests.
type CORSRule struct {
	AllowedOrigins []string
	AllowedMethods []string
	ExposedHeaders []string
	MaxAgeSecs     int
}

// IsNotFound returns true if err is a not found error.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// merge applies props over o following SetProperties semantics.
func (o *Object) merge(props Properties) {
	if props.ContentType != "" {
		o.ContentType = props.ContentType
	}
	if props.ContentEncoding != "" {
		o.ContentEncoding = props.ContentEncoding
	}
	if props.CacheControl != "" {
		o.CacheControl = props.CacheControl
	}

	if len(props.Metadata) == 0 {
		return
	}
	if o.Metadata == nil {
		o.Metadata = map[string]string{}
	}
	for k, v := range props.Metadata {
		k = strings.ToLower(k)
		if v == "" {
			delete(o.Metadata, k)
			continue
		}
		o.Metadata[k] = v
	}
}

func metadata(m map[string]string) map[string]string {
	md := make(map[string]string, len(m))
	for k, v := range m {
		if v == "" {
			continue
		}
		md[strings.ToLower(k)] = v
	}
	return md
}
