package model

// A Meta is a user metadata entry of a container or an object.
// Container metadata have an empty ObjectKey.
type Meta struct {
	Base `json:",inline" storm:"inline"`

	ContainerID string `json:"container_id" storm:"index"`
	ObjectKey   string `json:"object_key"   storm:"index"`
	// Key is the metadata name without its `X-Container-Meta-' or `X-Object-Meta-' prefix, lower-cased.
	Key   string `json:"key"   storm:"index"`
	Value string `json:"value"`
}
