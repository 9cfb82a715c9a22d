package models

import "time"

type SocialPost struct {
	ID          int64     `db:"id" json:"id"`
	WorkspaceID int64     `db:"workspace_id" json:"workspace_id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Content     string    `db:"content" json:"content"`
	Platforms   []string  `db:"platforms" json:"platforms"`
	PostType    string    `db:"post_type" json:"post_type"`
	Status      string    `db:"status" json:"status"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	AIGenerated bool      `db:"ai_generated" json:"ai_generated"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PostTarget records which page-level account a post goes to on platforms
// where the connected account is a page rather than a personal profile.
type PostTarget struct {
	PostID    int64     `db:"post_id" json:"post_id"`
	Platform  string    `db:"platform" json:"platform"`
	PageID    string    `db:"page_id" json:"page_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PlatformResult is the per-platform outcome of one dispatch. The aggregate
// post status is derived from these rows, never the other way around.
type PlatformResult struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	Platform     string    `db:"platform" json:"platform"`
	Status       string    `db:"status" json:"status"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	ExternalRef  string    `db:"external_ref" json:"external_ref,omitempty"`
	PageName     string    `db:"page_name" json:"page_name,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type MediaAsset struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	FileName  string    `db:"file_name"`
	FileType  string    `db:"file_type"`
	FileSize  int64     `db:"file_size"`
	FileURL   string    `db:"file_url"`
	CreatedAt time.Time `db:"created_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id"`
	AssetID      int64     `db:"asset_id"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	PostTypeText     = "text"
	PostTypeImage    = "image"
	PostTypeVideo    = "video"
	PostTypeCarousel = "carousel"
)

const (
	ResultStatusPublished = "published"
	ResultStatusFailed    = "failed"
)
