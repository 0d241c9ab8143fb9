package models

import "time"

// User represents a registered account
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	FirstName    string    `json:"first_name"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Attribute names stored per user
const (
	MetaColors    = "colors"
	MetaCountry   = "country"
	MetaExtraText = "extra_text"
	MetaImage     = "image"
)

// Profile is a user together with its extension fields
type Profile struct {
	*User
	Country   string `json:"country"`
	ExtraText string `json:"extra_text"`
	Image     string `json:"image"`
}

// ProfileUpdate carries the extension fields a client wants to change.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name      *string `json:"name"`
	Country   *string `json:"country"`
	ExtraText *string `json:"extra_text"`
	Image     *string `json:"image"`
}

// ResetKey is the stored half of a password reset key
type ResetKey struct {
	Hash      string    `json:"hash"`
	ExpiresAt time.Time `json:"expires_at"`
}
