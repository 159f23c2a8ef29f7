package models

import (
	"strings"
	"time"
)

// Wishlist is a named list of gift items owned by one user
type Wishlist struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	Title         string    `json:"title" db:"title"`
	Description   string    `json:"description" db:"description"`
	CoverImageURL *string   `json:"cover_image_url" db:"cover_image_url"`
	IsPublic      bool      `json:"is_public" db:"is_public"`
	ShareSlug     string    `json:"share_slug" db:"share_slug"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ShareURL returns the public link for the wishlist under base
func (w *Wishlist) ShareURL(base string) string {
	return strings.TrimRight(base, "/") + "/wishlist/" + w.ShareSlug
}

// WishlistUpdate lists mutable wishlist fields. The share slug is immutable
// once issued and therefore not part of it.
type WishlistUpdate struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	CoverImageURL *string `json:"cover_image_url"`
	IsPublic      *bool   `json:"is_public"`
}
