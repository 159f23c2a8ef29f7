package models

import "time"

// UserView merges the auth identity with its profile.
//
// When the profile could not be loaded or created, Degraded is true and only
// the auth fields plus defaults are populated.
type UserView struct {
	ID                  string         `json:"id"`
	Email               string         `json:"email"`
	FullName            string         `json:"full_name"`
	AvatarURL           *string        `json:"avatar_url"`
	DefaultLanguage     Language       `json:"default_language"`
	ShowReservationName bool           `json:"show_reservation_name"`
	Metadata            map[string]any `json:"user_metadata,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           *time.Time     `json:"updated_at"`
	Degraded            bool           `json:"degraded,omitempty"`
}

// DisplayName returns the best display name for the user
func (u *UserView) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
