package models

import "time"

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

// statusRank orders the post lifecycle. Transitions may only move
// forward; published and failed are terminal.
var statusRank = map[string]int{
	PostStatusDraft:      0,
	PostStatusScheduled:  1,
	PostStatusPublishing: 2,
	PostStatusPublished:  3,
	PostStatusFailed:     3,
}

func CanTransition(from, to string) bool {
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	return tr > fr
}

type Post struct {
	ID              int64             `db:"id" json:"id"`
	OrgID           int64             `db:"org_id" json:"org_id"`
	UserID          int64             `db:"user_id" json:"user_id"`
	Content         string            `db:"content" json:"content"`
	TargetPlatforms []string          `db:"target_platforms" json:"target_platforms"`
	MediaURLs       []string          `db:"media_urls" json:"media_urls"`
	ScheduledTime   time.Time         `db:"scheduled_time" json:"scheduled_time"`
	Status          string            `db:"status" json:"status"`
	PlatformPostIDs map[string]string `db:"platform_post_ids" json:"platform_post_ids"`
	ErrorMessage    string            `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	OrgID     int64     `db:"org_id" json:"org_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	FileURL   string    `db:"file_url" json:"file_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
