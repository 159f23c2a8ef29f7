package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/chcemmat/internal/auth"
	"github.com/Kerhoff/chcemmat/internal/metrics"
	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
)

// Alerter notifies an operator about states that need manual attention
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// Mailer delivers contact form submissions and returns the provider's
// message id.
type Mailer interface {
	SendContact(ctx context.Context, msg models.ContactMessage) (string, error)
}

type nopAlerter struct{}

func (nopAlerter) Alert(context.Context, string) error { return nil }

// Deps lists everything the service layer is built from
type Deps struct {
	Profiles     repository.ProfileRepository
	Wishlists    repository.WishlistRepository
	Items        repository.ItemRepository
	Reservations repository.ReservationRepository
	Auth         auth.Provider
	Mailer       Mailer
	Alerter      Alerter
	Metrics      *metrics.Metrics
	Logger       *logrus.Logger
	ShareBaseURL string
}

// Service is the central business logic layer. It groups the entity
// services and implements the operations that span several of them.
type Service struct {
	logger       *logrus.Logger
	metrics      *metrics.Metrics
	alerter      Alerter
	shareBaseURL string
	now          func() time.Time

	wishlists    repository.WishlistRepository
	items        repository.ItemRepository
	reservations repository.ReservationRepository

	Profiles     *ProfileService
	Wishlists    *WishlistService
	Items        *ItemService
	Reservations *ReservationService
	Identity     *IdentityService
	Contact      *ContactService
}

// New creates a new Service with all required dependencies.
func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	if d.Alerter == nil {
		d.Alerter = nopAlerter{}
	}

	return &Service{
		logger:       d.Logger,
		metrics:      d.Metrics,
		alerter:      d.Alerter,
		shareBaseURL: d.ShareBaseURL,
		now:          time.Now,

		wishlists:    d.Wishlists,
		items:        d.Items,
		reservations: d.Reservations,

		Profiles:  &ProfileService{repo: d.Profiles},
		Wishlists: &WishlistService{repo: d.Wishlists, newSlug: newShareSlug},
		Items:     &ItemService{repo: d.Items, reservations: d.Reservations},
		Reservations: &ReservationService{
			reservations: d.Reservations,
			items:        d.Items,
			wishlists:    d.Wishlists,
			logger:       d.Logger,
			metrics:      d.Metrics,
			alerter:      d.Alerter,
		},
		Identity: newIdentityService(d.Auth, d.Profiles, d.Logger),
		Contact:  &ContactService{mailer: d.Mailer, logger: d.Logger},
	}
}

// ShareURL returns the public link of a wishlist
func (s *Service) ShareURL(w *models.Wishlist) string {
	return w.ShareURL(s.shareBaseURL)
}
