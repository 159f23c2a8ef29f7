// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same uniqueness constraints and cascades as
// the PostgreSQL schema but no row-level policies.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
)

// Store keeps every table in maps guarded by one mutex
type Store struct {
	mu           sync.RWMutex
	profiles     map[string]models.Profile
	wishlists    map[string]models.Wishlist
	items        map[string]models.Item
	reservations map[string]models.Reservation
	now          func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		profiles:     make(map[string]models.Profile),
		wishlists:    make(map[string]models.Wishlist),
		items:        make(map[string]models.Item),
		reservations: make(map[string]models.Reservation),
		now:          time.Now,
	}
}

// SetClock replaces the time source used for created_at/updated_at
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Profiles returns the profile repository view of the store
func (s *Store) Profiles() repository.ProfileRepository { return profileRepo{s} }

// Wishlists returns the wishlist repository view of the store
func (s *Store) Wishlists() repository.WishlistRepository { return wishlistRepo{s} }

// Items returns the item repository view of the store
func (s *Store) Items() repository.ItemRepository { return itemRepo{s} }

// Reservations returns the reservation repository view of the store
func (s *Store) Reservations() repository.ReservationRepository { return reservationRepo{s} }

func uniqueViolation(op, constraint string) error {
	return &repository.StoreError{
		Op:      op,
		Code:    repository.CodeUniqueViolation,
		Message: `duplicate key value violates unique constraint "` + constraint + `"`,
	}
}

func foreignKeyViolation(op, constraint string) error {
	return &repository.StoreError{
		Op:      op,
		Code:    repository.CodeForeignKeyViolation,
		Message: `insert or update violates foreign key constraint "` + constraint + `"`,
	}
}

// ---------------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------------

type profileRepo struct{ s *Store }

func (r profileRepo) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.profiles[p.ID]; ok {
		return nil, uniqueViolation("failed to create profile", "profiles_pkey")
	}
	created := *p
	if created.DefaultLanguage == "" {
		created.DefaultLanguage = models.DefaultLanguage
	}
	created.CreatedAt = r.s.now()
	created.UpdatedAt = nil
	r.s.profiles[created.ID] = created
	return &created, nil
}

func (r profileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r profileRepo) Update(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return nil, repository.NoRows("failed to update profile")
	}
	if upd.FullName != nil {
		p.FullName = *upd.FullName
	}
	if upd.AvatarURL != nil {
		p.AvatarURL = upd.AvatarURL
	}
	if upd.DefaultLanguage != nil {
		p.DefaultLanguage = *upd.DefaultLanguage
	}
	if upd.ShowReservationName != nil {
		p.ShowReservationName = *upd.ShowReservationName
	}
	now := r.s.now()
	p.UpdatedAt = &now
	r.s.profiles[id] = p
	return &p, nil
}

// DeleteProfile removes a profile, as an operator would out of band
func (s *Store) DeleteProfile(id string) {
	s.mu.Lock()
	delete(s.profiles, id)
	s.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Wishlists
// ---------------------------------------------------------------------------

type wishlistRepo struct{ s *Store }

func (r wishlistRepo) Create(ctx context.Context, w *models.Wishlist) (*models.Wishlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.wishlists {
		if existing.ShareSlug == w.ShareSlug {
			return nil, uniqueViolation("failed to create wishlist", "wishlists_share_slug_key")
		}
	}
	created := *w
	created.ID = uuid.NewString()
	created.CreatedAt = r.s.now()
	created.UpdatedAt = created.CreatedAt
	r.s.wishlists[created.ID] = created
	return &created, nil
}

func (r wishlistRepo) GetByID(ctx context.Context, id string) (*models.Wishlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.wishlists[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r wishlistRepo) GetBySlug(ctx context.Context, slug string) (*models.Wishlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, w := range r.s.wishlists {
		if w.ShareSlug == slug {
			return &w, nil
		}
	}
	return nil, nil
}

func (r wishlistRepo) ListByUser(ctx context.Context, userID string) ([]*models.Wishlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var lists []*models.Wishlist
	for _, w := range r.s.wishlists {
		if w.UserID == userID {
			w := w
			lists = append(lists, &w)
		}
	}
	sort.SliceStable(lists, func(i, j int) bool {
		return lists[i].CreatedAt.After(lists[j].CreatedAt)
	})
	return lists, nil
}

func (r wishlistRepo) Update(ctx context.Context, id string, upd models.WishlistUpdate) (*models.Wishlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.wishlists[id]
	if !ok {
		return nil, repository.NoRows("failed to update wishlist")
	}
	if upd.Title != nil {
		w.Title = *upd.Title
	}
	if upd.Description != nil {
		w.Description = *upd.Description
	}
	if upd.CoverImageURL != nil {
		w.CoverImageURL = upd.CoverImageURL
	}
	if upd.IsPublic != nil {
		w.IsPublic = *upd.IsPublic
	}
	w.UpdatedAt = r.s.now()
	r.s.wishlists[id] = w
	return &w, nil
}

func (r wishlistRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.wishlists[id]; !ok {
		return repository.NoRows("failed to delete wishlist")
	}
	delete(r.s.wishlists, id)
	for itemID, item := range r.s.items {
		if item.WishlistID == id {
			r.s.deleteItemLocked(itemID)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type itemRepo struct{ s *Store }

func (r itemRepo) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.wishlists[item.WishlistID]; !ok {
		return nil, foreignKeyViolation("failed to create item", "items_wishlist_id_fkey")
	}
	created := *item
	created.ID = uuid.NewString()
	if created.Status == "" {
		created.Status = models.ItemStatusAvailable
	}
	created.CreatedAt = r.s.now()
	created.UpdatedAt = created.CreatedAt
	r.s.items[created.ID] = created
	return &created, nil
}

func (r itemRepo) GetByID(ctx context.Context, id string) (*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r itemRepo) ListByWishlist(ctx context.Context, wishlistID string) ([]*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var items []*models.Item
	for _, item := range r.s.items {
		if item.WishlistID == wishlistID {
			item := item
			items = append(items, &item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (r itemRepo) Update(ctx context.Context, id string, upd models.ItemUpdate) (*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.items[id]
	if !ok {
		return nil, repository.NoRows("failed to update item")
	}
	if upd.Title != nil {
		item.Title = *upd.Title
	}
	if upd.Description != nil {
		item.Description = upd.Description
	}
	if upd.Price != nil {
		item.Price.Decimal = *upd.Price
		item.Price.Valid = true
	}
	if upd.ProductURL != nil {
		item.ProductURL = upd.ProductURL
	}
	if upd.AffiliateURL != nil {
		item.AffiliateURL = upd.AffiliateURL
	}
	if upd.ImageURL != nil {
		item.ImageURL = upd.ImageURL
	}
	if upd.Status != nil {
		item.Status = *upd.Status
	}
	item.UpdatedAt = r.s.now()
	r.s.items[id] = item
	return &item, nil
}

func (r itemRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.items[id]; !ok {
		return repository.NoRows("failed to delete item")
	}
	r.s.deleteItemLocked(id)
	return nil
}

func (r itemRepo) ListReservedWithoutReservation(ctx context.Context) ([]*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var items []*models.Item
	for _, item := range r.s.items {
		if item.Status != models.ItemStatusReserved || r.s.reservationForItemLocked(item.ID) != nil {
			continue
		}
		item := item
		items = append(items, &item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) deleteItemLocked(id string) {
	delete(s.items, id)
	for resID, res := range s.reservations {
		if res.ItemID == id {
			delete(s.reservations, resID)
		}
	}
}

// ---------------------------------------------------------------------------
// Reservations
// ---------------------------------------------------------------------------

type reservationRepo struct{ s *Store }

func (r reservationRepo) Create(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.items[res.ItemID]; !ok {
		return nil, foreignKeyViolation("failed to create reservation", "reservations_item_id_fkey")
	}
	if r.s.reservationForItemLocked(res.ItemID) != nil {
		return nil, uniqueViolation("failed to create reservation", "reservations_item_id_key")
	}
	created := *res
	created.ID = uuid.NewString()
	created.CreatedAt = r.s.now()
	r.s.reservations[created.ID] = created
	return &created, nil
}

func (r reservationRepo) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res, ok := r.s.reservations[id]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r reservationRepo) GetByItem(ctx context.Context, itemID string) (*models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.reservationForItemLocked(itemID), nil
}

func (r reservationRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reservations[id]; !ok {
		return repository.NoRows("failed to delete reservation")
	}
	delete(r.s.reservations, id)
	return nil
}

func (r reservationRepo) ListOrphaned(ctx context.Context, cutoff time.Time) ([]*models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Reservation
	for _, res := range r.s.reservations {
		item, ok := r.s.items[res.ItemID]
		if !ok || item.Status != models.ItemStatusAvailable || !res.CreatedAt.Before(cutoff) {
			continue
		}
		res := res
		out = append(out, &res)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) reservationForItemLocked(itemID string) *models.Reservation {
	for _, res := range s.reservations {
		if res.ItemID == itemID {
			res := res
			return &res
		}
	}
	return nil
}
