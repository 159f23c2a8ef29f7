package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
)

const itemColumns = `id, wishlist_id, title, description, price, product_url, affiliate_url, image_url, status, created_at, updated_at`

type itemRepository struct {
	querier
}

// NewItemRepository creates a new wishlist item repository
func NewItemRepository(db *sqlx.DB) repository.ItemRepository {
	return &itemRepository{querier{db: db}}
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	query := `
		INSERT INTO items (wishlist_id, title, description, price, product_url, affiliate_url, image_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + itemColumns

	status := item.Status
	if status == "" {
		status = models.ItemStatusAvailable
	}

	created := &models.Item{}
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, created, query,
			item.WishlistID,
			item.Title,
			item.Description,
			item.Price,
			item.ProductURL,
			item.AffiliateURL,
			item.ImageURL,
			status,
		)
	})
	if err != nil {
		return nil, translate("failed to create item", err)
	}

	return created, nil
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item := &models.Item{}
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, item, query, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("failed to get item by ID", err)
	}

	return item, nil
}

func (r *itemRepository) ListByWishlist(ctx context.Context, wishlistID string) ([]*models.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE wishlist_id = $1
		ORDER BY created_at DESC`

	var items []*models.Item
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.SelectContext(ctx, q, &items, query, wishlistID)
	})
	if err != nil {
		return nil, translate("failed to query items", err)
	}

	return items, nil
}

func (r *itemRepository) Update(ctx context.Context, id string, upd models.ItemUpdate) (*models.Item, error) {
	var b updateBuilder
	if upd.Title != nil {
		b.set("title", *upd.Title)
	}
	if upd.Description != nil {
		b.set("description", *upd.Description)
	}
	if upd.Price != nil {
		b.set("price", *upd.Price)
	}
	if upd.ProductURL != nil {
		b.set("product_url", *upd.ProductURL)
	}
	if upd.AffiliateURL != nil {
		b.set("affiliate_url", *upd.AffiliateURL)
	}
	if upd.ImageURL != nil {
		b.set("image_url", *upd.ImageURL)
	}
	if upd.Status != nil {
		b.set("status", *upd.Status)
	}
	b.sets = append(b.sets, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE items SET %s WHERE id = %s RETURNING %s`,
		strings.Join(b.sets, ", "), b.where(id), itemColumns)

	updated := &models.Item{}
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, updated, query, b.args...)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NoRows("failed to update item")
		}
		return nil, translate("failed to update item", err)
	}

	return updated, nil
}

func (r *itemRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.querier, "items", "failed to delete item", id)
}

func (r *itemRepository) ListReservedWithoutReservation(ctx context.Context) ([]*models.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items i
		WHERE i.status = 'reserved'
		  AND NOT EXISTS (SELECT 1 FROM reservations r WHERE r.item_id = i.id)
		ORDER BY i.created_at`

	var items []*models.Item
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.SelectContext(ctx, q, &items, query)
	})
	if err != nil {
		return nil, translate("failed to query reserved items without reservation", err)
	}

	return items, nil
}
