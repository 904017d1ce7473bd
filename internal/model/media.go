package model

import "time"

// Media is one stored object and its metadata row.
// ThumbnailID links a derived thumbnail (itself a Media row); nil means no thumbnail.
type Media struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Bucket       string    `json:"bucket"`
	StorageKey   string    `json:"storage_key"`
	MimeType     string    `json:"mime_type"`
	OriginalName string    `json:"name"`
	SizeBytes    int64     `json:"size_bytes"`
	OwnerID      string    `json:"owner_id,omitempty"`
	ThumbnailID  *string   `json:"thumbnail_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
