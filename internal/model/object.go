package model

// An Object represents the blob stored on the filesystem and its HTTP properties.
type Object struct {
	Base `json:",inline" storm:"inline"`

	ContainerID string `json:"container_id" storm:"index"`

	Key             string `json:"key"              storm:"index"`
	Size            int64  `json:"size"`
	ContentType     string `json:"content_type"`
	ContentEncoding string `json:"content_encoding"`
	CacheControl    string `json:"cache_control"`
	Checksum        string `json:"checksum"`
}
