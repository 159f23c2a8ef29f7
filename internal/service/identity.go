package service

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/chcemmat/internal/actor"
	"github.com/Kerhoff/chcemmat/internal/auth"
	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
)

// AuthEvent names a change of authentication state
type AuthEvent string

const (
	EventSignedIn    AuthEvent = "SIGNED_IN"
	EventSignedOut   AuthEvent = "SIGNED_OUT"
	EventUserUpdated AuthEvent = "USER_UPDATED"
)

// AuthStateCallback receives auth state changes. session is nil on sign-out.
type AuthStateCallback func(event AuthEvent, session *auth.Session)

// Subscription is a registered auth state listener
type Subscription struct {
	id       uint64
	identity *IdentityService
	once     sync.Once
}

// Unsubscribe stops delivery. Calling it more than once is harmless.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.identity.mu.Lock()
		delete(s.identity.listeners, s.id)
		s.identity.mu.Unlock()
	})
}

// SignOutResult reports how a sign-out went. Sign-out never fails from the
// caller's point of view; Err only says whether the provider acknowledged it.
type SignOutResult struct {
	Acknowledged bool
	Err          error
}

// IdentityService joins auth sessions with profiles
type IdentityService struct {
	provider auth.Provider
	profiles repository.ProfileRepository
	logger   *logrus.Logger

	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]AuthStateCallback
}

func newIdentityService(provider auth.Provider, profiles repository.ProfileRepository, logger *logrus.Logger) *IdentityService {
	return &IdentityService{
		provider:  provider,
		profiles:  profiles,
		logger:    logger,
		listeners: make(map[uint64]AuthStateCallback),
	}
}

// CurrentSession looks the token up with the provider. Lookup failures are
// logged and reported as no session.
func (s *IdentityService) CurrentSession(ctx context.Context, accessToken string) *auth.Session {
	if strings.TrimSpace(accessToken) == "" {
		return nil
	}
	session, err := s.provider.GetSession(ctx, accessToken)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to look up session")
		return nil
	}
	return session
}

// GetCurrentUser returns the user behind the token merged with their
// profile, or nil when the token carries no session or the lookup fails.
// A missing profile is created on the way (see GetOrCreateProfile).
func (s *IdentityService) GetCurrentUser(ctx context.Context, accessToken string) (*models.UserView, error) {
	session := s.CurrentSession(ctx, accessToken)
	if session == nil {
		return nil, nil
	}
	return s.GetOrCreateProfile(ctx, &session.User), nil
}

// GetOrCreateProfile loads the profile of u and inserts a default one when
// it is missing. This read may write.
//
// If the profile can be neither read nor created, a degraded view built
// from the auth identity alone is returned instead of an error.
func (s *IdentityService) GetOrCreateProfile(ctx context.Context, u *auth.User) *models.UserView {
	ctx = actor.WithActor(ctx, actor.User(u.ID))
	log := s.logger.WithField("user_id", u.ID)

	p, err := s.profiles.GetByID(ctx, u.ID)
	if err != nil {
		log.WithError(err).Warn("Failed to load profile")
		p = nil
	}

	if p == nil {
		p, err = s.profiles.Create(ctx, defaultProfile(u))
		if err != nil {
			log.WithError(err).Error("Failed to create missing profile, returning degraded user")
			return degradedView(u)
		}
		log.Info("Created missing profile")
	}

	return mergeView(u, p)
}

func defaultProfile(u *auth.User) *models.Profile {
	name := strings.TrimSpace(u.FullName())
	if name == "" {
		name = u.Email
	}
	return &models.Profile{
		ID:                  u.ID,
		Email:               u.Email,
		FullName:            name,
		DefaultLanguage:     models.DefaultLanguage,
		ShowReservationName: false,
	}
}

func mergeView(u *auth.User, p *models.Profile) *models.UserView {
	return &models.UserView{
		ID:                  u.ID,
		Email:               u.Email,
		FullName:            p.FullName,
		AvatarURL:           p.AvatarURL,
		DefaultLanguage:     p.DefaultLanguage,
		ShowReservationName: p.ShowReservationName,
		Metadata:            u.Metadata,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func degradedView(u *auth.User) *models.UserView {
	return &models.UserView{
		ID:              u.ID,
		Email:           u.Email,
		FullName:        u.FullName(),
		DefaultLanguage: models.DefaultLanguage,
		Metadata:        u.Metadata,
		CreatedAt:       u.CreatedAt,
		Degraded:        true,
	}
}

// SignUp registers a user. Provider errors are returned unchanged.
func (s *IdentityService) SignUp(ctx context.Context, email, password, fullName string) (*auth.Result, error) {
	meta := map[string]any{}
	if name := strings.TrimSpace(fullName); name != "" {
		meta["full_name"] = name
	}
	res, err := s.provider.SignUp(ctx, email, password, meta)
	if err != nil {
		return nil, err
	}
	if res.Session != nil {
		s.emit(EventSignedIn, res.Session)
	}
	return res, nil
}

// SignIn authenticates with email and password. Provider errors are
// returned unchanged.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*auth.Result, error) {
	res, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.emit(EventSignedIn, res.Session)
	return res, nil
}

// UpdatePassword changes the password of the session's user
func (s *IdentityService) UpdatePassword(ctx context.Context, accessToken, password string) (*auth.User, error) {
	u, err := s.provider.UpdateUser(ctx, accessToken, auth.UserAttributes{Password: &password})
	if err != nil {
		return nil, err
	}
	s.emit(EventUserUpdated, &auth.Session{AccessToken: accessToken, User: *u})
	return u, nil
}

// SignOut ends the session. Provider failures are logged and reported in the
// result, never returned as an error.
func (s *IdentityService) SignOut(ctx context.Context, accessToken string) SignOutResult {
	result := SignOutResult{Acknowledged: true}
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		s.logger.WithError(err).Warn("Sign-out was not acknowledged by the auth provider")
		result = SignOutResult{Err: err}
	}
	s.emit(EventSignedOut, nil)
	return result
}

// OnAuthStateChange registers cb for auth state changes made through this
// service. Callbacks run synchronously on the calling goroutine.
func (s *IdentityService) OnAuthStateChange(cb AuthStateCallback) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.listeners[s.nextID] = cb
	return &Subscription{id: s.nextID, identity: s}
}

func (s *IdentityService) emit(event AuthEvent, session *auth.Session) {
	s.mu.RLock()
	callbacks := make([]AuthStateCallback, 0, len(s.listeners))
	for _, cb := range s.listeners {
		callbacks = append(callbacks, cb)
	}
	s.mu.RUnlock()

	for _, cb := range callbacks {
		cb(event, session)
	}
}
