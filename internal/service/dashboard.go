package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/chcemmat/internal/actor"
	"github.com/Kerhoff/chcemmat/internal/models"
)

const dashboardConcurrency = 8

// SharedWishlist is the public view of a wishlist opened through its link
type SharedWishlist struct {
	models.Wishlist
	ShareURL string         `json:"share_url"`
	Items    []*models.Item `json:"items"`
	IsOwner  bool           `json:"is_owner"`
}

// Dashboard returns the user's wishlists with their items, and each
// reserved item with its reservation.
//
// Items and reservations are fetched concurrently. A wishlist whose items
// fail to load is shown empty and an item whose reservation fails to load is
// shown without it; only the wishlist listing itself can fail the call.
func (s *Service) Dashboard(ctx context.Context, userID string) ([]models.WishlistWithItems, error) {
	lists, err := s.wishlists.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError("list wishlists", err)
	}

	out := make([]models.WishlistWithItems, len(lists))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardConcurrency)

	for i, w := range lists {
		i, w := i, w
		out[i] = models.WishlistWithItems{
			Wishlist: *w,
			ShareURL: s.ShareURL(w),
			Items:    []models.ItemWithReservation{},
		}
		g.Go(func() error {
			items, err := s.items.ListByWishlist(gctx, w.ID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.WithError(err).WithField("wishlist_id", w.ID).Warn("Failed to load wishlist items")
				return nil
			}
			out[i].Items = s.withReservations(gctx, items)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, storeError("load dashboard", err)
	}
	return out, nil
}

func (s *Service) withReservations(ctx context.Context, items []*models.Item) []models.ItemWithReservation {
	out := make([]models.ItemWithReservation, len(items))

	var g errgroup.Group
	g.SetLimit(dashboardConcurrency)
	for i, item := range items {
		i, item := i, item
		out[i] = models.ItemWithReservation{Item: *item}
		if !item.IsReserved() {
			continue
		}
		g.Go(func() error {
			res, err := s.reservations.GetByItem(ctx, item.ID)
			if err != nil {
				s.logger.WithError(err).WithField("item_id", item.ID).Warn("Failed to load reservation")
				return nil
			}
			out[i].Reservation = res
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// PublicWishlist returns the wishlist shared under slug with its items.
// Unknown slugs are reported as NotFound.
func (s *Service) PublicWishlist(ctx context.Context, slug string) (*SharedWishlist, error) {
	w, err := s.Wishlists.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, notFound("wishlist not found")
	}

	items, err := s.Items.ListByWishlist(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Item{}
	}

	a := actor.FromContext(ctx)
	return &SharedWishlist{
		Wishlist: *w,
		ShareURL: s.ShareURL(w),
		Items:    items,
		IsOwner:  a.IsAuthenticated() && a.UserID == w.UserID,
	}, nil
}
