package service

import (
	"context"
	"strings"

	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
)

const maxSlugAttempts = 3

// WishlistService wraps the wishlists table
type WishlistService struct {
	repo    repository.WishlistRepository
	newSlug func() (string, error)
}

// ListByUser returns the user's wishlists, newest first
func (s *WishlistService) ListByUser(ctx context.Context, userID string) ([]*models.Wishlist, error) {
	lists, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError("list wishlists", err)
	}
	return lists, nil
}

// GetByID returns the wishlist or nil when it does not exist or is hidden
func (s *WishlistService) GetByID(ctx context.Context, id string) (*models.Wishlist, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get wishlist", err)
	}
	return w, nil
}

// GetBySlug returns the wishlist shared under slug. An unknown slug yields
// (nil, nil).
func (s *WishlistService) GetBySlug(ctx context.Context, slug string) (*models.Wishlist, error) {
	w, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, storeError("get wishlist by slug", err)
	}
	return w, nil
}

// Create inserts a wishlist with a freshly generated share slug. A slug
// collision is retried with a new slug a few times.
func (s *WishlistService) Create(ctx context.Context, w *models.Wishlist) (*models.Wishlist, error) {
	w.Title = strings.TrimSpace(w.Title)
	if w.Title == "" {
		return nil, invalid("title is required")
	}
	if w.UserID == "" {
		return nil, invalid("owner is required")
	}
	if err := checkURL("cover_image_url", w.CoverImageURL); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		slug, err := s.newSlug()
		if err != nil {
			return nil, &Error{Kind: KindStore, Message: "could not generate share slug", Err: err}
		}
		w.ShareSlug = slug

		created, err := s.repo.Create(ctx, w)
		if err == nil {
			return created, nil
		}
		if repository.CodeOf(err) != repository.CodeUniqueViolation {
			return nil, storeError("create wishlist", err)
		}
		lastErr = err
	}
	return nil, storeError("create wishlist", lastErr)
}

// Update changes the given fields. The share slug never changes.
func (s *WishlistService) Update(ctx context.Context, id string, upd models.WishlistUpdate) (*models.Wishlist, error) {
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, invalid("title must not be empty")
		}
		upd.Title = &title
	}
	if err := checkURL("cover_image_url", upd.CoverImageURL); err != nil {
		return nil, err
	}

	w, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, storeError("update wishlist", err)
	}
	return w, nil
}

// Delete removes the wishlist together with its items and reservations
func (s *WishlistService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError("delete wishlist", err)
	}
	return nil
}
