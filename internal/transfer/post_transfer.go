package transfer

import (
	"time"

	"github.com/maheshrc27/broadcast/internal/models"
)

type PostSubmission struct {
	Content      string            `json:"content"`
	Platforms    []string          `json:"platforms"`
	Tags         []string          `json:"tags"`
	Images       []models.ImageRef `json:"images"`
	ScheduledFor string            `json:"scheduled_for"`
}

// PublishRequest is what every adapter receives for one post.
type PublishRequest struct {
	Content string
	Tags    []string
	Images  []models.ImageRef
}

type PublishResult struct {
	PlatformPostID  string `json:"post_id"`
	PlatformPostURL string `json:"url"`
}

type PlatformOutcome struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SubmitResponse struct {
	Success      bool                       `json:"success"`
	PostID       int64                      `json:"post_id"`
	Scheduled    bool                       `json:"scheduled,omitempty"`
	ScheduledFor *time.Time                 `json:"scheduled_for,omitempty"`
	Message      string                     `json:"message,omitempty"`
	Status       string                     `json:"status,omitempty"`
	Results      map[string]PlatformOutcome `json:"results,omitempty"`
	Timestamp    time.Time                  `json:"timestamp"`
}

type PreviewRequest struct {
	Content   string   `json:"content"`
	Platforms []string `json:"platforms"`
	Tags      []string `json:"tags"`
}

type PlatformPreview struct {
	Text      string `json:"text"`
	Length    int    `json:"length"`
	CharLimit int    `json:"char_limit"`
	Truncated bool   `json:"truncated"`
}

type PreviewResponse struct {
	MaxCharLimit int                        `json:"max_char_limit"`
	Platforms    map[string]PlatformPreview `json:"platforms"`
}

type PostDetail struct {
	Post    *models.Post         `json:"post"`
	Results []*models.PostResult `json:"results"`
}

type SweepReport struct {
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}
