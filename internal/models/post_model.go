package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
)

type Post struct {
	ID           int64          `db:"id" json:"id"`
	UserID       int64          `db:"user_id" json:"user_id"`
	Content      string         `db:"content" json:"content"`
	Tags         pq.StringArray `db:"tags" json:"tags"`
	Platforms    pq.StringArray `db:"platforms" json:"platforms"`
	Images       Images         `db:"images" json:"images"`
	Status       string         `db:"status" json:"status"` // scheduled, publishing, published, failed
	ScheduledFor *time.Time     `db:"scheduled_for" json:"scheduled_for,omitempty"`
	PublishedAt  *time.Time     `db:"published_at" json:"published_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

type ImageRef struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text"`
}

// Images is stored as an ordered jsonb array.
type Images []ImageRef

func (i Images) Value() (driver.Value, error) {
	if i == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(i)
}

func (i *Images) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*i = Images{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("images: unsupported column type")
	}
	return json.Unmarshal(raw, i)
}

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	FileURL   string    `db:"file_url" json:"file_url"`
	AltText   string    `db:"alt_text" json:"alt_text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

var postTransitions = map[string][]string{
	PostStatusScheduled:  {PostStatusPublishing, PostStatusFailed},
	PostStatusPublishing: {PostStatusPublished, PostStatusFailed},
}

// CanTransition reports whether a post may move from one status to another.
// Published and failed are terminal.
func CanTransition(from, to string) bool {
	for _, next := range postTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PredecessorsOf lists the statuses a post may leave to enter status.
func PredecessorsOf(status string) []string {
	var from []string
	for _, s := range []string{PostStatusScheduled, PostStatusPublishing} {
		if CanTransition(s, status) {
			from = append(from, s)
		}
	}
	return from
}
