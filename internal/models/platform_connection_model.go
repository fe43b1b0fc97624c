package models

import (
	"time"
)

type PlatformConnection struct {
	ID               int64      `db:"id" json:"id"`
	UserID           int64      `db:"user_id" json:"user_id"`
	Platform         string     `db:"platform" json:"platform"`
	PlatformUserID   string     `db:"platform_user_id" json:"platform_user_id"`
	PlatformUsername string     `db:"platform_username" json:"platform_username"`
	AccessToken      string     `db:"access_token" json:"-"`
	RefreshToken     string     `db:"refresh_token" json:"-"`
	InstanceURL      string     `db:"instance_url" json:"instance_url,omitempty"`
	TokenExpiresAt   *time.Time `db:"token_expires_at" json:"token_expires_at,omitempty"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// OAuthState carries in-flight authorization context between the connect
// redirect and the provider callback.
type OAuthState struct {
	State        string    `db:"state"`
	UserID       int64     `db:"user_id"`
	Platform     string    `db:"platform"`
	CodeVerifier string    `db:"code_verifier"`
	InstanceURL  string    `db:"instance_url"`
	ClientID     string    `db:"client_id"`
	ClientSecret string    `db:"client_secret"`
	ExpiresAt    time.Time `db:"expires_at"`
	CreatedAt    time.Time `db:"created_at"`
}

func (s *OAuthState) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
