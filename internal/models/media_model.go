package models

import "time"

// MaxSelectedMedia is the number of media items a single post can carry.
const MaxSelectedMedia = 4

type MediaKind string

const (
	MediaKindSample  MediaKind = "sample"
	MediaKindPackage MediaKind = "package"
	MediaKindVideo   MediaKind = "video"
)

func (k MediaKind) Valid() bool {
	switch k {
	case MediaKindSample, MediaKindPackage, MediaKindVideo:
		return true
	}
	return false
}

type Media struct {
	ID             int64     `db:"id" json:"id"`
	ProductID      int64     `db:"product_id" json:"product_id"`
	RemoteURL      string    `db:"remote_url" json:"remote_url"`
	LocalPath      string    `db:"local_path" json:"local_path,omitempty"`
	MirrorURL      string    `db:"mirror_url" json:"mirror_url,omitempty"`
	Downloaded     bool      `db:"downloaded" json:"downloaded"`
	Selected       bool      `db:"selected" json:"selected"`
	SelectionOrder *int      `db:"selection_order" json:"selection_order,omitempty"`
	Kind           MediaKind `db:"kind" json:"kind"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
