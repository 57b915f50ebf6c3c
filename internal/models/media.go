package models

import "time"

type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
	FileTypeAudio FileType = "audio"
)

type MediaStatus string

const (
	MediaStatusPending    MediaStatus = "pending"
	MediaStatusProcessing MediaStatus = "processing"
	MediaStatusDone       MediaStatus = "done"
	MediaStatusError      MediaStatus = "error"
)

// MediaRecord is one uploaded asset. Tags is a sparse species-count map:
// a missing key means the species was not detected, stored values are
// always >= 1.
type MediaRecord struct {
	FileID       string
	S3URL        string
	ThumbnailURL *string
	FileType     FileType
	Status       MediaStatus
	Tags         map[string]int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Link returns the URL a search result should expose: the thumbnail for
// images that have one, the full asset otherwise.
func (r MediaRecord) Link() string {
	if r.FileType == FileTypeImage && r.ThumbnailURL != nil && *r.ThumbnailURL != "" {
		return *r.ThumbnailURL
	}
	return r.S3URL
}
