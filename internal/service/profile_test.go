package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/chcemmat/internal/models"
)

func TestProfileUpdate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Profiles.Create(ownerCtx(), &models.Profile{ID: ownerID, Email: "jana@example.com", FullName: "Jana"})
	require.NoError(t, err)

	p, err := f.svc.Profiles.Get(ownerCtx(), ownerID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.DefaultLanguage, p.DefaultLanguage)

	lang := models.Language("EN")
	show := true
	p, err = f.svc.Profiles.Update(ownerCtx(), ownerID, models.ProfileUpdate{
		FullName:            strPtr(" Jana Nováková "),
		DefaultLanguage:     &lang,
		ShowReservationName: &show,
		AvatarURL:           strPtr("https://cdn.example.com/a.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Jana Nováková", p.FullName)
	assert.Equal(t, models.LanguageEN, p.DefaultLanguage)
	assert.True(t, p.ShowReservationName)
	assert.NotNil(t, p.UpdatedAt)
}

func TestProfileUpdate_Validation(t *testing.T) {
	f := newFixture(t)
	de := models.Language("de")

	tests := []struct {
		name string
		upd  models.ProfileUpdate
	}{
		{name: "unsupported language", upd: models.ProfileUpdate{DefaultLanguage: &de}},
		{name: "blank name", upd: models.ProfileUpdate{FullName: strPtr("  ")}},
		{name: "bad avatar", upd: models.ProfileUpdate{AvatarURL: strPtr("my avatar")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Profiles.Update(ownerCtx(), ownerID, tt.upd)
			assert.Equal(t, KindInvalid, KindOf(err))
		})
	}
}

func TestProfileGet_Absent(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Profiles.Get(ownerCtx(), visitorID)
	require.NoError(t, err)
	assert.Nil(t, p)
}
