package models

import (
	"fmt"
	"strings"
	"time"
)

// Language is a user's preferred interface language
type Language string

const (
	LanguageSK Language = "sk"
	LanguageEN Language = "en"
)

// DefaultLanguage is assigned to every new profile
const DefaultLanguage = LanguageSK

// ParseLanguage validates a language code
func ParseLanguage(s string) (Language, error) {
	switch l := Language(strings.ToLower(strings.TrimSpace(s))); l {
	case LanguageSK, LanguageEN:
		return l, nil
	default:
		return "", fmt.Errorf("unsupported language %q", s)
	}
}

// Profile holds application data for an authenticated identity.
// The profile ID equals the auth identity ID.
type Profile struct {
	ID                  string     `json:"id" db:"id"`
	Email               string     `json:"email" db:"email"`
	FullName            string     `json:"full_name" db:"full_name"`
	AvatarURL           *string    `json:"avatar_url" db:"avatar_url"`
	DefaultLanguage     Language   `json:"default_language" db:"default_language"`
	ShowReservationName bool       `json:"show_reservation_name" db:"show_reservation_name"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at" db:"updated_at"`
}

// ProfileUpdate lists the profile fields a user may change. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName            *string   `json:"full_name"`
	AvatarURL           *string   `json:"avatar_url"`
	DefaultLanguage     *Language `json:"default_language"`
	ShowReservationName *bool     `json:"show_reservation_name"`
}
