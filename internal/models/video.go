package models

import (
	"time"

	"github.com/lib/pq"
)

// VideoStatus is the processing lifecycle state of a video.
type VideoStatus string

const (
	StatusCreated   VideoStatus = "created"
	StatusRunning   VideoStatus = "running"
	StatusCompleted VideoStatus = "completed"
	StatusFailed    VideoStatus = "failed"
)

// Terminal reports whether no further automatic transition leaves the status.
func (s VideoStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the transition s -> next is a legal step of
// the lifecycle created -> running -> {completed|failed}.
func (s VideoStatus) CanTransitionTo(next VideoStatus) bool {
	switch s {
	case StatusCreated:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

type Video struct {
	MediaID     string      `gorm:"column:media_id;type:text;primaryKey" json:"media_id"`
	Title       string      `gorm:"column:title;type:text" json:"title"`
	Description string      `gorm:"column:description;type:text" json:"description"`
	URL         string      `gorm:"column:url;type:text" json:"url,omitempty"`
	Path        string      `gorm:"column:path;type:text" json:"-"`
	Duration    *float64    `gorm:"column:duration" json:"duration,omitempty"`
	Status      VideoStatus `gorm:"column:status;type:text;not null;default:created" json:"status"`

	Tags pq.StringArray `gorm:"column:tags;type:text[]" json:"tags,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Video) TableName() string { return "videos" }

type VideoMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    *float64 `json:"duration"`
	Tags        []string `json:"tags,omitempty"`
}

// VideoInput identifies a video to index: a caller-chosen media id plus exactly
// one source, either a remote URL or an object name of a previous upload.
type VideoInput struct {
	MediaID   string `json:"media_id"`
	URL       string `json:"url,omitempty"`
	UploadRef string `json:"upload_ref,omitempty"`
}

// VideoParams controls frame extraction for captioning.
type VideoParams struct {
	ExtractFPS float64 `json:"extract_fps"`
	BatchSize  int     `json:"batch_size"`
}
