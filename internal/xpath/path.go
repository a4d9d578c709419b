package xpath

import (
	"net/url"
	"path"
	"strings"
)

// Unescape returns the unescaped form of p, or p itself when it is not a valid escaped path.
func Unescape(p string) string {
	up, err := url.PathUnescape(p)
	if err != nil {
		return p
	}
	return up
}

// Join returns the `container/object' path of an object.
func Join(container, object string) string {
	return container + "/" + object
}

// Ext returns the lower-cased extension of the last segment of p, dot included.
// It returns an empty string when there is no extension.
func Ext(p string) string {
	return strings.ToLower(path.Ext(p))
}

// Within reports whether `container/object' is the subpath itself or lives under it.
// The comparison is case-insensitive and an empty subpath contains everything.
func Within(container, object, subpath string) bool {
	subpath = strings.Trim(subpath, "/")
	if subpath == "" {
		return true
	}

	p := strings.ToLower(Join(container, object))
	base := strings.ToLower(Join(container, subpath))
	return p == base || strings.HasPrefix(p, base+"/")
}
