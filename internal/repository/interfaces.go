package repository

import (
	"context"
	"time"

	"github.com/Kerhoff/chcemmat/internal/models"
)

// Every method runs as the actor carried by ctx (see package actor).
// Lookups by key return (nil, nil) when no row matches.

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Update(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error)
}

// WishlistRepository defines the interface for wishlist data operations
type WishlistRepository interface {
	Create(ctx context.Context, list *models.Wishlist) (*models.Wishlist, error)
	GetByID(ctx context.Context, id string) (*models.Wishlist, error)
	GetBySlug(ctx context.Context, slug string) (*models.Wishlist, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Wishlist, error)
	Update(ctx context.Context, id string, upd models.WishlistUpdate) (*models.Wishlist, error)
	Delete(ctx context.Context, id string) error
}

// ItemRepository defines the interface for wishlist item operations
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	GetByID(ctx context.Context, id string) (*models.Item, error)
	ListByWishlist(ctx context.Context, wishlistID string) ([]*models.Item, error)
	Update(ctx context.Context, id string, upd models.ItemUpdate) (*models.Item, error)
	Delete(ctx context.Context, id string) error
	// ListReservedWithoutReservation returns items marked reserved that
	// have no reservation row.
	ListReservedWithoutReservation(ctx context.Context) ([]*models.Item, error)
}

// ReservationRepository defines the interface for reservation operations
type ReservationRepository interface {
	Create(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error)
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
	GetByItem(ctx context.Context, itemID string) (*models.Reservation, error)
	Delete(ctx context.Context, id string) error
	// ListOrphaned returns reservations created before cutoff whose item
	// is still available.
	ListOrphaned(ctx context.Context, cutoff time.Time) ([]*models.Reservation, error)
}
