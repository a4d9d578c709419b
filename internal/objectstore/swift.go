package objectstore

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/ncw/swift/v2"
	"github.com/pkg/errors"
)

// Swift is a Store backed by an OpenStack Swift account.
type Swift struct {
	conn     *swift.Connection
	pageSize int
}

// A SwiftOption customizes a Swift store.
type SwiftOption func(s *Swift)

// WithPageSize sets the number of objects requested per listing page.
// The server default is used when zero.
func WithPageSize(n int) SwiftOption {
	return func(s *Swift) {
		s.pageSize = n
	}
}

// NewSwift returns a new Swift store using the given connection.
// The connection authenticates lazily on its first request.
func NewSwift(conn *swift.Connection, options ...SwiftOption) *Swift {
	s := &Swift{
		conn: conn,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

var (
	_ Store          = (*Swift)(nil)
	_ CORSConfigurer = (*Swift)(nil)
)

func (s *Swift) Walk(ctx context.Context, container, prefix string, fn WalkFunc) error {
	opts := &swift.ObjectsOpts{
		Prefix: prefix,
		Limit:  s.pageSize,
	}

	err := s.conn.ObjectsWalk(ctx, container, opts, func(ctx context.Context, opts *swift.ObjectsOpts) (interface{}, error) {
		objects, err := s.conn.Objects(ctx, container, opts)
		if err != nil {
			return nil, errors.Wrap(translate(err), "could not list objects")
		}

		for _, object := range objects {
			if object.PseudoDirectory {
				continue
			}

			err = fn(&Object{
				Container:   container,
				Name:        object.Name,
				ContentType: object.ContentType,
				Size:        object.Bytes,
				Hash:        object.Hash,
			})
			if err != nil {
				return nil, err
			}
		}
		return objects, nil
	})
	return err
}

func (s *Swift) Stat(ctx context.Context, container, name string) (*Object, error) {
	info, headers, err := s.conn.Object(ctx, container, name)
	if err != nil {
		return nil, errors.Wrap(translate(err), "could not stat object")
	}

	return &Object{
		Container:       container,
		Name:            name,
		ContentType:     info.ContentType,
		ContentEncoding: headers["Content-Encoding"],
		CacheControl:    headers["Cache-Control"],
		Size:            info.Bytes,
		Hash:            info.Hash,
		Metadata:        headers.ObjectMetadata(),
		Detailed:        true,
	}, nil
}

func (s *Swift) Exists(ctx context.Context, container, name string) (bool, error) {
	_, err := s.Stat(ctx, container, name)
	if IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *Swift) Read(ctx context.Context, container, name string) ([]byte, error) {
	// Asking for identity prevents the HTTP transport from inflating a gzip encoded body behind our back.
	f, _, err := s.conn.ObjectOpen(ctx, container, name, false, swift.Headers{"Accept-Encoding": "identity"})
	if err != nil {
		return nil, errors.Wrap(translate(err), "could not open object")
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	return payload, errors.Wrap(err, "could not read object")
}

func (s *Swift) WriteBody(ctx context.Context, container, name string, body []byte, props Properties) error {
	_, err := s.conn.ObjectPut(ctx, container, name, bytes.NewReader(body), true, "", props.ContentType, objectHeaders(props))
	return errors.Wrap(translate(err), "could not write object")
}

// SetProperties reads the current properties before updating them because a Swift POST replaces all of them.
func (s *Swift) SetProperties(ctx context.Context, container, name string, props Properties) error {
	object, err := s.Stat(ctx, container, name)
	if err != nil {
		return err
	}
	object.merge(props)

	h := objectHeaders(Properties{
		ContentEncoding: object.ContentEncoding,
		CacheControl:    object.CacheControl,
		Metadata:        object.Metadata,
	})
	if object.ContentType != "" {
		h["Content-Type"] = object.ContentType
	}

	err = s.conn.ObjectUpdate(ctx, container, name, h)
	return errors.Wrap(translate(err), "could not update object properties")
}

func (s *Swift) Containers(ctx context.Context) ([]string, error) {
	names, err := s.conn.ContainerNamesAll(ctx, nil)
	return names, errors.Wrap(err, "could not list containers")
}

// SetCORS maps the rule on the container CORS metadata.
// Swift supports one rule per container and does not scope it by method.
func (s *Swift) SetCORS(ctx context.Context, container string, rules []CORSRule) error {
	if len(rules) > 1 {
		return errors.Errorf("swift supports only one CORS rule per container, got %d", len(rules))
	}

	// Empty values remove the metadata.
	m := swift.Metadata{
		"access-control-allow-origin":   "",
		"access-control-max-age":        "",
		"access-control-expose-headers": "",
	}
	if len(rules) == 1 {
		rule := rules[0]
		m["access-control-allow-origin"] = strings.Join(rule.AllowedOrigins, " ")
		m["access-control-expose-headers"] = strings.Join(rule.ExposedHeaders, " ")
		if rule.MaxAgeSecs > 0 {
			m["access-control-max-age"] = strconv.Itoa(rule.MaxAgeSecs)
		}
	}

	err := s.conn.ContainerUpdate(ctx, container, m.ContainerHeaders())
	return errors.Wrap(translate(err), "could not update container CORS")
}

func objectHeaders(props Properties) swift.Headers {
	h := swift.Metadata(metadata(props.Metadata)).ObjectHeaders()
	if props.ContentEncoding != "" {
		h["Content-Encoding"] = props.ContentEncoding
	}
	if props.CacheControl != "" {
		h["Cache-Control"] = props.CacheControl
	}
	return h
}

func translate(err error) error {
	if err == swift.ObjectNotFound || err == swift.ContainerNotFound {
		return ErrNotFound
	}
	return err
}
