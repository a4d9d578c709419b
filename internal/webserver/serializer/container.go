package serializer

import (
	"strings"

	"github.com/mdouchement/blobpress/internal/model"
)

// A ContainerStats holds the usage of a container.
type ContainerStats struct {
	Count int64
	Bytes int64
}

// TextContainers returns the text serialized form of the given models.
func TextContainers(containers []*model.Container) string {
	sl := make([]string, 0, len(containers))

	for _, container := range containers {
		sl = append(sl, container.Name+"\n")
	}

	return strings.Join(sl, "")
}

// Containers returns the serialized form of the given models.
func Containers(containers []*model.Container, stats map[string]ContainerStats) []map[string]interface{} {
	sl := make([]map[string]interface{}, 0, len(containers))

	for _, container := range containers {
		sl = append(sl, Container(container, stats[container.ID]))
	}

	return sl
}

// Container returns the serialized form of the given model.
func Container(container *model.Container, stats ContainerStats) map[string]interface{} {
	return map[string]interface{}{
		"name":          container.Name,
		"count":         stats.Count,
		"bytes":         stats.Bytes,
		"last_modified": timestamp(container.UpdatedAt),
	}
}
