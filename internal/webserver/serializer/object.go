package serializer

import (
	"strings"
	"time"

	"github.com/mdouchement/blobpress/internal/model"
)

// TimeFormat is the layout of the dates in Swift listings.
const TimeFormat = "2006-01-02T15:04:05.000000"

// TextObjects returns the text serialized form of the given models.
func TextObjects(objects []*model.Object) string {
	sl := make([]string, 0, len(objects))

	for _, object := range objects {
		sl = append(sl, object.Key+"\n")
	}

	return strings.Join(sl, "")
}

// Objects returns the serialized form of the given models.
func Objects(objects []*model.Object) []map[string]interface{} {
	sl := make([]map[string]interface{}, 0, len(objects))

	for _, object := range objects {
		sl = append(sl, Object(object))
	}

	return sl
}

// Object returns the serialized form of the given model.
func Object(object *model.Object) map[string]interface{} {
	return map[string]interface{}{
		"name":          object.Key,
		"content_type":  object.ContentType,
		"bytes":         object.Size,
		"last_modified": timestamp(object.UpdatedAt),
		"hash":          object.Checksum,
	}
}

// Page returns the objects following marker, in key order, with at most limit entries.
// Only the keys starting with prefix are kept. The objects must be sorted by key.
func Page(objects []*model.Object, prefix, marker string, limit int) []*model.Object {
	page := make([]*model.Object, 0)
	for _, object := range objects {
		if len(page) == limit {
			break
		}
		if !strings.HasPrefix(object.Key, prefix) || object.Key <= marker {
			continue
		}
		page = append(page, object)
	}
	return page
}

func timestamp(t *time.Time) string {
	if t == nil {
		return time.Time{}.Format(TimeFormat)
	}
	return t.UTC().Format(TimeFormat)
}
