package models

import "time"

// PostResult is the outcome of one publish attempt to one platform.
// Rows are only ever inserted.
type PostResult struct {
	ID              int64     `db:"id" json:"id"`
	PostID          int64     `db:"post_id" json:"post_id"`
	Platform        string    `db:"platform" json:"platform"`
	Status          string    `db:"status" json:"status"`
	PlatformPostID  string    `db:"platform_post_id" json:"platform_post_id,omitempty"`
	PlatformPostURL string    `db:"platform_post_url" json:"platform_post_url,omitempty"`
	ErrorMessage    string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

const (
	ResultStatusSuccess = "success"
	ResultStatusFailed  = "failed"
)
