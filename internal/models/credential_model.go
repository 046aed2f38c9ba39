package models

import "time"

const PlatformX = "x"

// TransportCredential holds the encrypted OAuth2 tokens of the publishing account.
type TransportCredential struct {
	ID             int64     `db:"id" json:"id"`
	Platform       string    `db:"platform" json:"platform"`
	AccessToken    string    `db:"access_token" json:"-"`
	RefreshToken   string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
