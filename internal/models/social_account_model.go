package models

import (
	"time"
)

const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformThreads   = "threads"
	PlatformTiktok    = "tiktok"
	PlatformLinkedin  = "linkedin"
	PlatformTwitter   = "x"
	PlatformYoutube   = "youtube"
)

// SocialAccount is one connected account for a platform inside a workspace.
// YouTube is the exception: its credential lives in the integrations table
// because it rides the shared Google OAuth flow (see models.Integration).
type SocialAccount struct {
	ID             int64     `db:"id" json:"id"`
	WorkspaceID    int64     `db:"workspace_id" json:"workspace_id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	Platform       string    `db:"platform" json:"platform"`
	AccountID      string    `db:"account_id" json:"account_id"`
	AccountName    string    `db:"account_name" json:"account_name"`
	ProfilePicture string    `db:"profile_picture_url" json:"profile_picture"`
	AccessToken    string    `db:"access_token" json:"-"`
	RefreshToken   string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	IsConnected    bool      `db:"is_connected" json:"is_connected"`
	FollowersCount int64     `db:"followers_count" json:"followers_count"`
	EngagementRate float64   `db:"engagement_rate" json:"engagement_rate"`
	AdditionalData []byte    `db:"additional_data" json:"additional_data,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the stored credential is past its expiry. A zero
// expiry means the platform handed out a non-expiring token.
func (sa *SocialAccount) Expired(now time.Time) bool {
	return !sa.TokenExpiresAt.IsZero() && sa.TokenExpiresAt.Before(now)
}

// PageRequired reports whether publishing on the platform needs a page-level
// target picked by the user, as opposed to the personal profile.
func PageRequired(platform string) bool {
	switch platform {
	case PlatformFacebook, PlatformInstagram, PlatformThreads:
		return true
	default:
		return false
	}
}

// DisplayKey maps a stored platform identifier to the key the frontend
// widget grid uses. Only x is renamed; everything else passes through.
func DisplayKey(platform string) string {
	if platform == PlatformTwitter {
		return "twitter"
	}
	return platform
}
