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

const profileColumns = `id, email, full_name, avatar_url, default_language, show_reservation_name, created_at, updated_at`

type profileRepository struct {
	querier
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sqlx.DB) repository.ProfileRepository {
	return &profileRepository{querier{db: db}}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (id, email, full_name, avatar_url, default_language, show_reservation_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + profileColumns

	created := &models.Profile{}
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, created, query,
			profile.ID,
			profile.Email,
			profile.FullName,
			profile.AvatarURL,
			string(profile.DefaultLanguage),
			profile.ShowReservationName,
		)
	})
	if err != nil {
		return nil, translate("failed to create profile", err)
	}

	return created, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile := &models.Profile{}
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, profile, query, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("failed to get profile", err)
	}

	return profile, nil
}

func (r *profileRepository) Update(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error) {
	var b updateBuilder
	if upd.FullName != nil {
		b.set("full_name", *upd.FullName)
	}
	if upd.AvatarURL != nil {
		b.set("avatar_url", *upd.AvatarURL)
	}
	if upd.DefaultLanguage != nil {
		b.set("default_language", string(*upd.DefaultLanguage))
	}
	if upd.ShowReservationName != nil {
		b.set("show_reservation_name", *upd.ShowReservationName)
	}
	b.sets = append(b.sets, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = %s RETURNING %s`,
		strings.Join(b.sets, ", "), b.where(id), profileColumns)

	updated := &models.Profile{}
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, updated, query, b.args...)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NoRows("failed to update profile")
		}
		return nil, translate("failed to update profile", err)
	}

	return updated, nil
}
