package models

import "time"

type PostStatus string

const (
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPosted    PostStatus = "posted"
	PostStatusFailed    PostStatus = "failed"
)

type PostMode string

const (
	PostModeScheduled PostMode = "scheduled"
	PostModeImmediate PostMode = "immediate"
)

type Post struct {
	ID           int64      `db:"id" json:"id"`
	ProductID    int64      `db:"product_id" json:"product_id"`
	Text         string     `db:"post_text" json:"text"`
	Status       PostStatus `db:"status" json:"status"`
	ScheduledAt  time.Time  `db:"scheduled_at" json:"scheduled_at"`
	PostedAt     *time.Time `db:"posted_at" json:"posted_at,omitempty"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	RemoteID     string     `db:"remote_id" json:"remote_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

type PostMedia struct {
	PostID       int64 `db:"post_id" json:"post_id"`
	MediaID      int64 `db:"media_id" json:"media_id"`
	DisplayOrder int   `db:"display_order" json:"display_order"`
}

// PublishResult is the outcome of one publish attempt, written back onto the post row.
type PublishResult struct {
	Posted   bool
	RemoteID string
	PostedAt time.Time
	Error    string
}
