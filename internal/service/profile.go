package service

import (
	"context"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
)

// ProfileService wraps the profiles table
type ProfileService struct {
	repo repository.ProfileRepository
}

// Get returns the profile with the given id, or nil when there is none.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get profile", err)
	}
	return p, nil
}

// Create inserts a profile
func (s *ProfileService) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if p.DefaultLanguage == "" {
		p.DefaultLanguage = models.DefaultLanguage
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, storeError("create profile", err)
	}
	return created, nil
}

// Update changes the given fields of a profile
func (s *ProfileService) Update(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error) {
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return nil, invalid("full name must not be empty")
		}
		upd.FullName = &name
	}
	if upd.DefaultLanguage != nil {
		lang, err := models.ParseLanguage(string(*upd.DefaultLanguage))
		if err != nil {
			return nil, invalid("%v", err)
		}
		upd.DefaultLanguage = &lang
	}
	if err := checkURL("avatar_url", upd.AvatarURL); err != nil {
		return nil, err
	}

	p, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, storeError("update profile", err)
	}
	return p, nil
}

// checkURL accepts nil and empty values
func checkURL(field string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	if !govalidator.IsURL(*v) {
		return invalid("%s is not a valid URL", field)
	}
	return nil
}
