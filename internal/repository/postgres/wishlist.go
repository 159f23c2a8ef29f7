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

const wishlistColumns = `id, user_id, title, description, cover_image_url, is_public, share_slug, created_at, updated_at`

type wishlistRepository struct {
	querier
}

// NewWishlistRepository creates a new wishlist repository
func NewWishlistRepository(db *sqlx.DB) repository.WishlistRepository {
	return &wishlistRepository{querier{db: db}}
}

func (r *wishlistRepository) Create(ctx context.Context, list *models.Wishlist) (*models.Wishlist, error) {
	query := `
		INSERT INTO wishlists (user_id, title, description, cover_image_url, is_public, share_slug)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + wishlistColumns

	created := &models.Wishlist{}
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, created, query,
			list.UserID,
			list.Title,
			list.Description,
			list.CoverImageURL,
			list.IsPublic,
			list.ShareSlug,
		)
	})
	if err != nil {
		return nil, translate("failed to create wishlist", err)
	}

	return created, nil
}

func (r *wishlistRepository) GetByID(ctx context.Context, id string) (*models.Wishlist, error) {
	return r.getOne(ctx, "failed to get wishlist by ID",
		`SELECT `+wishlistColumns+` FROM wishlists WHERE id = $1`, id)
}

func (r *wishlistRepository) GetBySlug(ctx context.Context, slug string) (*models.Wishlist, error) {
	return r.getOne(ctx, "failed to get wishlist by slug",
		`SELECT `+wishlistColumns+` FROM wishlists WHERE share_slug = $1`, slug)
}

func (r *wishlistRepository) getOne(ctx context.Context, op, query string, arg any) (*models.Wishlist, error) {
	list := &models.Wishlist{}
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, list, query, arg)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(op, err)
	}

	return list, nil
}

func (r *wishlistRepository) ListByUser(ctx context.Context, userID string) ([]*models.Wishlist, error) {
	query := `
		SELECT ` + wishlistColumns + `
		FROM wishlists
		WHERE user_id = $1
		ORDER BY created_at DESC`

	var lists []*models.Wishlist
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.SelectContext(ctx, q, &lists, query, userID)
	})
	if err != nil {
		return nil, translate("failed to query wishlists by user", err)
	}

	return lists, nil
}

func (r *wishlistRepository) Update(ctx context.Context, id string, upd models.WishlistUpdate) (*models.Wishlist, error) {
	var b updateBuilder
	if upd.Title != nil {
		b.set("title", *upd.Title)
	}
	if upd.Description != nil {
		b.set("description", *upd.Description)
	}
	if upd.CoverImageURL != nil {
		b.set("cover_image_url", *upd.CoverImageURL)
	}
	if upd.IsPublic != nil {
		b.set("is_public", *upd.IsPublic)
	}
	b.sets = append(b.sets, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE wishlists SET %s WHERE id = %s RETURNING %s`,
		strings.Join(b.sets, ", "), b.where(id), wishlistColumns)

	updated := &models.Wishlist{}
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, updated, query, b.args...)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NoRows("failed to update wishlist")
		}
		return nil, translate("failed to update wishlist", err)
	}

	return updated, nil
}

func (r *wishlistRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.querier, "wishlists", "failed to delete wishlist", id)
}

// deleteByID removes one row and reports a no-rows error when nothing was
// deleted, which is also what a hiding policy looks like.
func deleteByID(ctx context.Context, qr querier, table, op, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table)

	var affected int64
	err := qr.run(ctx, func(q sqlx.ExtContext) error {
		result, err := q.ExecContext(ctx, query, id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return translate(op, err)
	}

	if affected == 0 {
		return repository.NoRows(op)
	}

	return nil
}
