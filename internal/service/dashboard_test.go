package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/chcemmat/internal/actor"
	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
)

// flakyLists fails item listing for one wishlist
type flakyLists struct {
	repository.ItemRepository
	failFor string
}

func (f flakyLists) ListByWishlist(ctx context.Context, wishlistID string) ([]*models.Item, error) {
	if wishlistID == f.failFor {
		return nil, errStoreDown
	}
	return f.ItemRepository.ListByWishlist(ctx, wishlistID)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	birthday := f.wishlist(t, "Birthday")
	christmas := f.wishlist(t, "Christmas")
	ball := f.item(t, birthday.ID, "Ball")
	f.item(t, birthday.ID, "Kite")
	f.item(t, christmas.ID, "Scarf")

	res, err := f.svc.Reservations.Reserve(anonCtx(), ReserveInput{ItemID: ball.ID, ReserverName: strPtr("Grandma")})
	require.NoError(t, err)

	lists, err := f.svc.Dashboard(ownerCtx(), ownerID)
	require.NoError(t, err)
	require.Len(t, lists, 2)

	byTitle := make(map[string]models.WishlistWithItems)
	for _, l := range lists {
		byTitle[l.Title] = l
	}

	b := byTitle["Birthday"]
	assert.Equal(t, "https://chcemmat.sk/wishlist/"+birthday.ShareSlug, b.ShareURL)
	require.Len(t, b.Items, 2)
	assert.Equal(t, 1, b.ReservedCount())
	for _, it := range b.Items {
		if it.ID == ball.ID {
			require.NotNil(t, it.Reservation)
			assert.Equal(t, res.ID, it.Reservation.ID)
		} else {
			assert.Nil(t, it.Reservation)
		}
	}
	assert.Len(t, byTitle["Christmas"].Items, 1)
}

func TestDashboard_DegradesPerWishlist(t *testing.T) {
	f := newFixture(t)
	broken := f.wishlist(t, "Broken")
	ok := f.wishlist(t, "Fine")
	f.item(t, broken.ID, "Ball")
	f.item(t, ok.ID, "Kite")
	f.svc.items = flakyLists{ItemRepository: f.store.Items(), failFor: broken.ID}

	lists, err := f.svc.Dashboard(ownerCtx(), ownerID)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	for _, l := range lists {
		if l.ID == broken.ID {
			assert.Empty(t, l.Items)
			assert.NotNil(t, l.Items)
		} else {
			assert.Len(t, l.Items, 1)
		}
	}
}

func TestDashboard_Empty(t *testing.T) {
	f := newFixture(t)

	lists, err := f.svc.Dashboard(ownerCtx(), visitorID)
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestPublicWishlist(t *testing.T) {
	f := newFixture(t)
	w := f.wishlist(t, "Birthday")
	f.item(t, w.ID, "Ball")

	shared, err := f.svc.PublicWishlist(anonCtx(), w.ShareSlug)
	require.NoError(t, err)
	assert.Equal(t, w.ID, shared.ID)
	assert.Len(t, shared.Items, 1)
	assert.False(t, shared.IsOwner)

	shared, err = f.svc.PublicWishlist(ownerCtx(), w.ShareSlug)
	require.NoError(t, err)
	assert.True(t, shared.IsOwner)

	shared, err = f.svc.PublicWishlist(actor.WithActor(context.Background(), actor.User(visitorID)), w.ShareSlug)
	require.NoError(t, err)
	assert.False(t, shared.IsOwner)

	_, err = f.svc.PublicWishlist(anonCtx(), "nonexistent-slug")
	assert.Equal(t, KindNotFound, KindOf(err))
}
