package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/chcemmat/internal/actor"
	"github.com/Kerhoff/chcemmat/internal/auth"
	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
	"github.com/Kerhoff/chcemmat/internal/repository/memory"
)

const (
	ownerID   = "9f0c3a52-0000-4000-8000-000000000001"
	visitorID = "9f0c3a52-0000-4000-8000-000000000002"
)

// faultyItems fails item updates on demand
type faultyItems struct {
	repository.ItemRepository
	mu           sync.Mutex
	updateErr    error
	beforeUpdate func()
}

func (f *faultyItems) failUpdates(err error) {
	f.mu.Lock()
	f.updateErr = err
	f.mu.Unlock()
}

func (f *faultyItems) Update(ctx context.Context, id string, upd models.ItemUpdate) (*models.Item, error) {
	f.mu.Lock()
	err, hook := f.updateErr, f.beforeUpdate
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return f.ItemRepository.Update(ctx, id, upd)
}

// faultyReservations fails reservation inserts and deletes on demand
type faultyReservations struct {
	repository.ReservationRepository
	mu        sync.Mutex
	createErr error
	deleteErr error

	// state of the context passed to the last Delete, taken during the call
	deleteActor    actor.Actor
	deleteCtxErr   error
	deleteDeadline bool
	deleteCalled   bool
}

func (f *faultyReservations) Create(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {
	f.mu.Lock()
	err := f.createErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.ReservationRepository.Create(ctx, res)
}

func (f *faultyReservations) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	err := f.deleteErr
	f.deleteCalled = true
	f.deleteActor = actor.FromContext(ctx)
	f.deleteCtxErr = ctx.Err()
	_, f.deleteDeadline = ctx.Deadline()
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ReservationRepository.Delete(ctx, id)
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (a *recordingAlerter) Alert(_ context.Context, text string) error {
	a.mu.Lock()
	a.alerts = append(a.alerts, text)
	a.mu.Unlock()
	return nil
}

func (a *recordingAlerter) sent() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.alerts...)
}

// fakeProvider serves sessions from a map keyed by access token
type fakeProvider struct {
	mu         sync.Mutex
	sessions   map[string]*auth.Session
	lookupErr  error
	signOutErr error
	signUpErr  error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: make(map[string]*auth.Session)}
}

func (p *fakeProvider) add(token string, u auth.User) {
	p.mu.Lock()
	p.sessions[token] = &auth.Session{AccessToken: token, TokenType: "bearer", User: u}
	p.mu.Unlock()
}

func (p *fakeProvider) GetSession(_ context.Context, token string) (*auth.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lookupErr != nil {
		return nil, p.lookupErr
	}
	return p.sessions[token], nil
}

func (p *fakeProvider) SignUp(_ context.Context, email, _ string, metadata map[string]any) (*auth.Result, error) {
	if p.signUpErr != nil {
		return nil, p.signUpErr
	}
	u := auth.User{ID: "new-user", Email: email, Metadata: metadata}
	p.add("signup-token", u)
	return &auth.Result{User: u, Session: &auth.Session{AccessToken: "signup-token", User: u}}, nil
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*auth.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.sessions {
		if s.User.Email == email && password == "secret123" {
			return &auth.Result{User: s.User, Session: s}, nil
		}
	}
	return nil, &auth.Error{Code: auth.CodeInvalidCredentials, Message: "Invalid login credentials"}
}

func (p *fakeProvider) SignOut(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signOutErr != nil {
		return p.signOutErr
	}
	delete(p.sessions, token)
	return nil
}

func (p *fakeProvider) UpdateUser(_ context.Context, token string, attrs auth.UserAttributes) (*auth.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[token]
	if !ok {
		return nil, &auth.Error{Code: auth.CodeSessionNotFound, Message: "Auth session missing!"}
	}
	if attrs.Password != nil && len(*attrs.Password) < auth.MinPasswordLength {
		return nil, &auth.Error{Code: auth.CodeWeakPassword, Message: "Password should be at least 6 characters."}
	}
	u := s.User
	return &u, nil
}

type fixture struct {
	store        *memory.Store
	items        *faultyItems
	reservations *faultyReservations
	provider     *fakeProvider
	alerter      *recordingAlerter
	logs         *test.Hook
	svc          *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	store := memory.New()
	f := &fixture{
		store:        store,
		items:        &faultyItems{ItemRepository: store.Items()},
		reservations: &faultyReservations{ReservationRepository: store.Reservations()},
		provider:     newFakeProvider(),
		alerter:      &recordingAlerter{},
		logs:         hook,
	}
	f.svc = New(Deps{
		Profiles:     store.Profiles(),
		Wishlists:    store.Wishlists(),
		Items:        f.items,
		Reservations: f.reservations,
		Auth:         f.provider,
		Alerter:      f.alerter,
		Logger:       logger,
		ShareBaseURL: "https://chcemmat.sk",
	})
	return f
}

func ownerCtx() context.Context {
	return actor.WithActor(context.Background(), actor.User(ownerID))
}

func (f *fixture) wishlist(t *testing.T, title string) *models.Wishlist {
	t.Helper()
	w, err := f.svc.Wishlists.Create(ownerCtx(), &models.Wishlist{UserID: ownerID, Title: title, IsPublic: true})
	require.NoError(t, err)
	return w
}

func (f *fixture) item(t *testing.T, wishlistID, title string) *models.Item {
	t.Helper()
	item, err := f.svc.Items.Create(ownerCtx(), &models.Item{WishlistID: wishlistID, Title: title})
	require.NoError(t, err)
	return item
}

func (f *fixture) itemStatus(t *testing.T, id string) models.ItemStatus {
	t.Helper()
	item, err := f.store.Items().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, item)
	return item.Status
}

func (f *fixture) entriesWithField(key, value string) []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range f.logs.AllEntries() {
		if v, ok := e.Data[key]; ok && v == value {
			out = append(out, e)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

var errStoreDown = errors.New("connection reset by peer")
