package models

import "time"

const ServiceYoutube = "youtube"

// Integration is a row in the generic integrations table shared by all
// Google-backed services (YouTube, Analytics, Calendar, Drive). The social
// layer only ever reads the youtube row.
type Integration struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	ServiceName  string    `db:"service_name" json:"service_name"`
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	AccountName  string    `db:"account_name" json:"account_name"`
	AccountID    string    `db:"account_id" json:"account_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (i *Integration) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && i.ExpiresAt.Before(now)
}
