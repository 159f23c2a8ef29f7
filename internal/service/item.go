package service

import (
	"context"
	"strings"

	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
)

// ItemService wraps the items table.
//
// An item is reserved exactly when a reservation row exists for it, so the
// reserved status is only set by ReservationService.Reserve and cleared by
// ReservationService.Cancel.
type ItemService struct {
	repo         repository.ItemRepository
	reservations repository.ReservationRepository
}

// ListByWishlist returns the wishlist's items, newest first
func (s *ItemService) ListByWishlist(ctx context.Context, wishlistID string) ([]*models.Item, error) {
	items, err := s.repo.ListByWishlist(ctx, wishlistID)
	if err != nil {
		return nil, storeError("list items", err)
	}
	return items, nil
}

// GetByID returns the item or nil
func (s *ItemService) GetByID(ctx context.Context, id string) (*models.Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get item", err)
	}
	return item, nil
}

// Create inserts an item. New items are available unless told otherwise.
func (s *ItemService) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return nil, invalid("title is required")
	}
	if item.WishlistID == "" {
		return nil, invalid("wishlist is required")
	}
	if item.Status == "" {
		item.Status = models.ItemStatusAvailable
	}
	if !item.Status.Valid() {
		return nil, invalid("unknown item status %q", item.Status)
	}
	if item.Status == models.ItemStatusReserved {
		return nil, invalid("items are reserved by reserving them")
	}
	if item.Price.Valid && item.Price.Decimal.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	if err := checkItemURLs(item.ProductURL, item.AffiliateURL, item.ImageURL); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, storeError("create item", err)
	}
	return created, nil
}

// Update changes the given fields of an item
func (s *ItemService) Update(ctx context.Context, id string, upd models.ItemUpdate) (*models.Item, error) {
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, invalid("title must not be empty")
		}
		upd.Title = &title
	}
	if upd.Status != nil {
		if err := s.checkStatusChange(ctx, id, *upd.Status); err != nil {
			return nil, err
		}
	}
	if upd.Price != nil && upd.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	if err := checkItemURLs(upd.ProductURL, upd.AffiliateURL, upd.ImageURL); err != nil {
		return nil, err
	}

	item, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, storeError("update item", err)
	}
	return item, nil
}

// Delete removes an item and its reservation
func (s *ItemService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError("delete item", err)
	}
	return nil
}

// checkStatusChange keeps the item status in line with its reservation.
// Purchased is always allowed.
func (s *ItemService) checkStatusChange(ctx context.Context, id string, status models.ItemStatus) error {
	switch status {
	case models.ItemStatusPurchased:
		return nil
	case models.ItemStatusReserved:
		return invalid("items are reserved by reserving them")
	case models.ItemStatusAvailable:
		res, err := s.reservations.GetByItem(ctx, id)
		if err != nil {
			return storeError("get reservation by item", err)
		}
		if res != nil {
			return &Error{
				Kind:    KindAlreadyReserved,
				Message: "item has a reservation, cancel it to make the item available",
			}
		}
		return nil
	default:
		return invalid("unknown item status %q", status)
	}
}

func checkItemURLs(product, affiliate, image *string) error {
	if err := checkURL("product_url", product); err != nil {
		return err
	}
	if err := checkURL("affiliate_url", affiliate); err != nil {
		return err
	}
	return checkURL("image_url", image)
}
