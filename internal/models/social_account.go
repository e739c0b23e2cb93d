package models

import (
	"encoding/json"
	"time"
)

const (
	PlatformTwitter   = "twitter"
	PlatformLinkedIn  = "linkedin"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformGoogle    = "google"
)

const (
	AccountStatusActive       = "active"
	AccountStatusDisabled     = "disabled"
	AccountStatusReauthNeeded = "reauth_required"
)

type SocialAccount struct {
	ID             int64           `db:"id" json:"id"`
	OrgID          int64           `db:"org_id" json:"org_id"`
	Platform       string          `db:"platform" json:"platform"`
	PlatformUserID string          `db:"platform_user_id" json:"platform_user_id"`
	AccountName    string          `db:"account_name" json:"account_name"`
	Username       string          `db:"username" json:"username"`
	ProfilePicture string          `db:"profile_picture_url" json:"profile_picture"`
	AccessToken    string          `db:"access_token" json:"-"`
	RefreshToken   string          `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time       `db:"token_expires_at" json:"token_expires_at"`
	Scopes         []string        `db:"scopes" json:"scopes"`
	Metadata       json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	AccountStatus  string          `db:"account_status" json:"account_status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}
