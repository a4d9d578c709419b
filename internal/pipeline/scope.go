package pipeline

import (
	"fmt"
	"strings"

	"github.com/mdouchement/blobpress/internal/objectstore"
	"github.com/mdouchement/blobpress/internal/xpath"
)

// A Scope describes the subset of objects a pass touches.
type Scope struct {
	// Extensions are the case-insensitive allowed extensions (e.g. `.js'). The leading dot is optional.
	Extensions []string
	// Subpath restricts the pass to `container/subpath/...' and `container/subpath'.
	Subpath string
	// InPlace makes the compression overwrite the original object
	// instead of creating a sibling named after Suffix.
	InPlace bool
	// Suffix is appended to the name of the compressed sibling (e.g. `.gz').
	Suffix string
	// Paths, when not empty, restricts the pass to these object names.
	Paths []string
}

// A Policy describes the cache policy stamped on objects.
type Policy struct {
	MaxAge int
}

// A Mode describes how the pass runs.
type Mode struct {
	// Simulate computes everything and logs the intended writes without performing them.
	Simulate bool
}

// CacheControl returns the rendered Cache-Control header.
func (p Policy) CacheControl() string {
	return fmt.Sprintf("public, max-age=%d", p.MaxAge)
}

func (p Policy) validate() error {
	if p.MaxAge < 0 {
		return configErrorf("max-age must not be negative, got %d", p.MaxAge)
	}
	return nil
}

// A matcher is the compiled and read-only form of a Scope.
type matcher struct {
	extensions map[string]bool
	subpath    string
	paths      map[string]bool
	inPlace    bool
	suffix     string
}

func (s Scope) compile(compression bool) (*matcher, error) {
	m := &matcher{
		extensions: map[string]bool{},
		subpath:    strings.Trim(s.Subpath, "/"),
		inPlace:    s.InPlace,
		suffix:     s.Suffix,
	}

	for _, ext := range s.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m.extensions[ext] = true
	}
	if len(m.extensions) == 0 {
		return nil, configErrorf("at least one extension is required")
	}

	if len(s.Paths) > 0 {
		m.paths = make(map[string]bool, len(s.Paths))
		for _, p := range s.Paths {
			m.paths[p] = true
		}
	}

	if compression && !s.InPlace && strings.TrimSpace(s.Suffix) == "" {
		return nil, configErrorf("a suffix is required when not compressing in place")
	}

	return m, nil
}

// InScope reports whether the object is selected by the scope.
func (m *matcher) InScope(o *objectstore.Object) bool {
	if m.paths != nil && !m.paths[o.Name] {
		return false
	}

	if !xpath.Within(o.Container, o.Name, m.subpath) {
		return false
	}

	return m.extensions[xpath.Ext(o.Name)]
}

// IsSibling reports whether the object is a compressed sibling produced by a previous pass.
func (m *matcher) IsSibling(o *objectstore.Object) bool {
	return !m.inPlace && strings.HasSuffix(strings.ToLower(o.Name), strings.ToLower(m.suffix))
}

// Target returns the name of the object written by the compression.
func (m *matcher) Target(o *objectstore.Object) string {
	if m.inPlace {
		return o.Name
	}
	return o.Name + m.suffix
}
