// Package models defines the canonical news-post record shared by the
// stores, the ingestion pipeline, and the API.
package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Status is the publication state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// ParseStatus maps a raw value onto a known status. Absent or unrecognized
// values fall back to draft.
func ParseStatus(raw string) Status {
	switch Status(raw) {
	case StatusDraft, StatusPublished, StatusArchived:
		return Status(raw)
	default:
		return StatusDraft
	}
}

// DefaultImageKind tags inline figures; future media kinds get other tags.
const DefaultImageKind = "figure"

// ImageRef is one entry of a post's image list.
type ImageRef struct {
	ID      string `json:"id" bson:"id"`
	URL     string `json:"url" bson:"url"`
	Caption string `json:"caption" bson:"caption"`
	Kind    string `json:"type" bson:"type"`
}

// UnmarshalJSON additionally accepts a bare URL string, the shape older
// records stored image entries in.
func (r *ImageRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var url string
		if err := json.Unmarshal(trimmed, &url); err != nil {
			return err
		}
		*r = ImageRef{URL: url, Kind: DefaultImageKind}
		return nil
	}
	type plain ImageRef
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*r = ImageRef(p)
	return nil
}

// ImageList is the ordered image list of a post. Its decoder tolerates the
// legacy single-string shape as well as arrays of strings.
type ImageList []ImageRef

func (l *ImageList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*l = nil
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var ref ImageRef
		if err := json.Unmarshal(trimmed, &ref); err != nil {
			return err
		}
		ref.ID = "img0"
		*l = ImageList{ref}
		return nil
	}
	if trimmed[0] != '[' {
		// Invalid legacy shape; degrade to an empty list.
		return nil
	}
	var refs []ImageRef
	if err := json.Unmarshal(trimmed, &refs); err != nil {
		return err
	}
	*l = refs
	return nil
}

// NewsPost is the canonical persisted record. The ingestion pipeline is the
// only writer of Content and ImagesURL.
type NewsPost struct {
	ID             string      `json:"_id" bson:"_id,omitempty"`
	Title          string      `json:"title" bson:"title"`
	Content        ContentBody `json:"content" bson:"content"`
	Status         Status      `json:"status" bson:"status"`
	Creator        string      `json:"creator,omitempty" bson:"creator,omitempty"`
	SourceURL      string      `json:"sourceUrl,omitempty" bson:"sourceUrl,omitempty"`
	ThumbnailImage string      `json:"thumbnailImage,omitempty" bson:"thumbnailImage,omitempty"`
	ImagesURL      ImageList   `json:"imagesUrl" bson:"imagesUrl"`
	Tags           []string    `json:"tags" bson:"tags"`
	SourceDate     *time.Time  `json:"sourceDate,omitempty" bson:"sourceDate,omitempty"`
	CreatedAt      time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// StatusStat is one row of the per-status breakdown.
type StatusStat struct {
	Status Status    `json:"status" bson:"status"`
	Count  int64     `json:"count" bson:"count"`
	Newest time.Time `json:"newest" bson:"newest"`
	Oldest time.Time `json:"oldest" bson:"oldest"`
}
